package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/crypto"
)

// TripIDPrefix starts every generated trip identifier.
const TripIDPrefix = "TRIP_"

// GenerateTripID derives a readable trip identifier from the trip data and the
// registration time: TRIP_<first 8 hex of sha256(canonical json), upper>_<unix>.
func GenerateTripID(data map[string]interface{}, at time.Time) (string, error) {
	canonical, err := CanonicalJSON(data)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return fmt.Sprintf("%s%s_%d", TripIDPrefix, strings.ToUpper(hex.EncodeToString(sum[:4])), at.Unix()), nil
}

// TripChainHash is the keccak256 of the trip id, the key used on chain.
func TripChainHash(tripID string) [32]byte {
	return crypto.Keccak256Hash([]byte(tripID))
}

// TripLocalHash is the sha256 hex of the trip id, used when the chain is unreachable.
func TripLocalHash(tripID string) string {
	sum := sha256.Sum256([]byte(tripID))
	return hex.EncodeToString(sum[:])
}

// CanonicalJSON renders v with sorted object keys, ", " and ": " separators and
// non-ASCII characters escaped, so equal trip data always hashes the same way
// regardless of field order.
func CanonicalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if x {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		writeCanonicalString(buf, x)
	case json.Number:
		buf.WriteString(x.String())
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteString(", ")
			}
			writeCanonicalString(buf, k)
			buf.WriteString(": ")
			if err := writeCanonical(buf, x[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				buf.WriteString(", ")
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		// Typed values (structs, float64, int) go through a JSON round trip first.
		raw, err := json.Marshal(x)
		if err != nil {
			return fmt.Errorf("canonical json: %w", err)
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var generic interface{}
		if err := dec.Decode(&generic); err != nil {
			return fmt.Errorf("canonical json: %w", err)
		}
		return writeCanonical(buf, generic)
	}
	return nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r < 0x20 || (r >= 0x7f && r <= 0xffff):
			fmt.Fprintf(buf, `\u%04x`, r)
		case r > 0xffff:
			r1, r2 := utf16Surrogates(r)
			fmt.Fprintf(buf, `\u%04x\u%04x`, r1, r2)
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

func utf16Surrogates(r rune) (rune, rune) {
	if r > utf8.MaxRune {
		r = utf8.RuneError
	}
	r -= 0x10000
	return 0xd800 + (r>>10)&0x3ff, 0xdc00 + r&0x3ff
}
