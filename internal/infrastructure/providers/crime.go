package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/touristsafety/internal/config"
	"github.com/turtacn/touristsafety/internal/domain/models"
	"github.com/turtacn/touristsafety/internal/domain/service"
	"github.com/turtacn/touristsafety/internal/infrastructure/cache"
	"github.com/turtacn/touristsafety/pkg/logger"
	"github.com/turtacn/touristsafety/pkg/utils"
)

// RecentCrimeWindow is how far back a record counts as recent activity.
const RecentCrimeWindow = 30 * 24 * time.Hour

const unknownRegion = "Unknown"

// crimeCategories maps a record to a bucket. The first matching keyword list wins.
var crimeCategories = []struct {
	keywords []string
	count    func(*models.CrimeStats)
}{
	{[]string{"theft", "burglary", "larceny"}, func(s *models.CrimeStats) { s.Theft++ }},
	{[]string{"robbery", "mugging"}, func(s *models.CrimeStats) { s.Robbery++ }},
	{[]string{"assault", "battery", "violence"}, func(s *models.CrimeStats) { s.Assault++ }},
	{[]string{"fraud", "scam", "cheating"}, func(s *models.CrimeStats) { s.Fraud++ }},
	{[]string{"cyber", "online", "digital"}, func(s *models.CrimeStats) { s.Cyber++ }},
	{[]string{"domestic", "family"}, func(s *models.CrimeStats) { s.Domestic++ }},
	{[]string{"rape", "sexual", "molestation"}, func(s *models.CrimeStats) { s.SexualOffenses++ }},
}

type geocodeResponse struct {
	PrincipalSubdivision string `json:"principalSubdivision"`
	Locality             string `json:"locality"`
}

// CrimeRecord is one row of the open-data crime dataset.
type CrimeRecord struct {
	CrimeType string `json:"crime_type"`
	Date      string `json:"date"`
}

type crimeRecordsResponse struct {
	Records []CrimeRecord `json:"records"`
}

// CrimeProvider looks up district-level crime records for a coordinate: a
// reverse geocode to state and district, then an open-data records query.
// CrimeProvider 通过逆地理编码和开放数据接口获取区县级犯罪记录。
type CrimeProvider struct {
	cfg     config.CrimeProviderConfig
	client  *jsonClient
	cache   *cache.ReportCache[models.CrimeReport]
	now     func() time.Time
	metrics service.Metrics
	logger  logger.Logger
}

// ProviderOption configures a provider.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	httpClient *http.Client
	now        func() time.Time
	metrics    service.Metrics
	logger     logger.Logger
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(o *providerOptions) { o.httpClient = c }
}

// WithProviderClock overrides time.Now for time-of-day and recency rules.
func WithProviderClock(now func() time.Time) ProviderOption {
	return func(o *providerOptions) { o.now = now }
}

// WithProviderMetrics records lookup sources and latency.
func WithProviderMetrics(m service.Metrics) ProviderOption {
	return func(o *providerOptions) { o.metrics = m }
}

// WithProviderLogger sets the logger.
func WithProviderLogger(l logger.Logger) ProviderOption {
	return func(o *providerOptions) { o.logger = l }
}

func buildOptions(opts []ProviderOption) providerOptions {
	o := providerOptions{
		now:     time.Now,
		metrics: service.NoopMetrics{},
		logger:  logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewCrimeProvider creates a crime provider. reports may be nil to disable caching.
func NewCrimeProvider(cfg config.CrimeProviderConfig, reports *cache.ReportCache[models.CrimeReport], opts ...ProviderOption) *CrimeProvider {
	o := buildOptions(opts)
	if cfg.RecordLimit <= 0 {
		cfg.RecordLimit = 100
	}
	return &CrimeProvider{
		cfg:     cfg,
		client:  newJSONClient(o.httpClient),
		cache:   reports,
		now:     o.now,
		metrics: o.metrics,
		logger:  o.logger.WithComponent("crime_provider"),
	}
}

// CrimeKey is the cache key of a crime lookup.
func CrimeKey(q models.GeoQuery) string {
	return fmt.Sprintf("%.4f:%.4f:%d", q.Latitude, q.Longitude, q.RadiusKm)
}

// CrimeReport implements service.CrimeRiskProvider. It never fails; upstream
// errors yield the default bundle with Source=default.
func (p *CrimeProvider) CrimeReport(ctx context.Context, q models.GeoQuery) *models.CrimeReport {
	start := time.Now()
	fetch := func(ctx context.Context) (*models.CrimeReport, bool) {
		report, err := p.fetch(ctx, q)
		if err != nil {
			p.logger.Warn(ctx, "crime lookup failed, using defaults", logger.Fields{
				"latitude":  q.Latitude,
				"longitude": q.Longitude,
				"error":     err.Error(),
			})
			return DefaultCrimeReport(p.now(), err), false
		}
		return report, true
	}

	var report *models.CrimeReport
	if p.cache != nil {
		report, _ = p.cache.GetOrFetch(ctx, CrimeKey(q), fetch)
	} else {
		report, _ = fetch(ctx)
	}
	p.metrics.RecordProviderLookup(service.ProviderCrime, string(report.Source), time.Since(start))
	return report
}

func (p *CrimeProvider) fetch(ctx context.Context, q models.GeoQuery) (*models.CrimeReport, error) {
	state, district, err := p.locate(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("reverse geocode: %w", err)
	}

	params := url.Values{}
	params.Set("api-key", p.cfg.APIKey)
	params.Set("format", "json")
	params.Set("filters[state]", state)
	params.Set("filters[district]", district)
	params.Set("limit", strconv.Itoa(p.cfg.RecordLimit))

	var resp crimeRecordsResponse
	if err := p.client.getJSON(ctx, strings.TrimRight(p.cfg.BaseURL, "/")+"/crime-data", params, p.cfg.RecordsTimeout, &resp); err != nil {
		return nil, fmt.Errorf("crime records: %w", err)
	}

	now := p.now()
	stats := CategorizeCrimes(resp.Records, now)
	factors := CrimeRiskFactorsFor(stats, now)
	return &models.CrimeReport{
		State:           state,
		District:        district,
		RiskFactors:     factors,
		Stats:           stats,
		Recommendations: service.CrimeRecommendations(factors),
		Source:          models.SourceLive,
		FetchedAt:       now,
	}, nil
}

func (p *CrimeProvider) locate(ctx context.Context, q models.GeoQuery) (string, string, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(q.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(q.Longitude, 'f', -1, 64))
	params.Set("localityLanguage", "en")

	var geo geocodeResponse
	if err := p.client.getJSON(ctx, p.cfg.GeocodeURL, params, p.cfg.GeocodeTimeout, &geo); err != nil {
		return "", "", err
	}
	if geo.PrincipalSubdivision == "" || geo.Locality == "" {
		return "", "", errors.New("no state or district for coordinates")
	}
	return geo.PrincipalSubdivision, geo.Locality, nil
}

// CategorizeCrimes buckets records by keyword and counts those dated within
// RecentCrimeWindow of now. Unparseable dates are not recent.
func CategorizeCrimes(records []CrimeRecord, now time.Time) models.CrimeStats {
	var stats models.CrimeStats
	for _, r := range records {
		stats.TotalCrimes++
		kind := strings.ToLower(r.CrimeType)
		matched := false
		for _, c := range crimeCategories {
			if containsAny(kind, c.keywords) {
				c.count(&stats)
				matched = true
				break
			}
		}
		if !matched {
			stats.Other++
		}
		if at, ok := parseRecordDate(r.Date); ok && now.Sub(at) <= RecentCrimeWindow {
			stats.RecentCrimes++
		}
	}
	return stats
}

// CrimeRiskFactorsFor converts record counts to 1..10 sub-scores.
func CrimeRiskFactorsFor(s models.CrimeStats, now time.Time) models.CrimeRiskFactors {
	scale := func(count int, per float64) float64 {
		return utils.Clamp(float64(count)/per+1, 1, 10)
	}
	return models.CrimeRiskFactors{
		Overall:        scale(s.TotalCrimes, 100),
		RecentActivity: scale(s.RecentCrimes, 5),
		Theft:          scale(s.Theft, 20),
		Violence:       scale(s.Assault, 10),
		Robbery:        scale(s.Robbery, 5),
		SexualCrime:    scale(s.SexualOffenses, 3),
		CyberCrime:     scale(s.Cyber, 15),
		Time:           service.TimeOfDayRisk(now),
		Seasonal:       service.SeasonalRisk(now),
	}
}

// DefaultCrimeReport is the neutral bundle returned when a lookup fails.
func DefaultCrimeReport(now time.Time, cause error) *models.CrimeReport {
	factors := models.UniformCrimeRisk(5)
	r := &models.CrimeReport{
		State:           unknownRegion,
		District:        unknownRegion,
		RiskFactors:     factors,
		Recommendations: service.CrimeRecommendations(factors),
		Source:          models.SourceDefault,
		FetchedAt:       now,
	}
	if cause != nil {
		r.Error = cause.Error()
	}
	return r
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

var recordDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseRecordDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range recordDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
