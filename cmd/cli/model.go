package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/touristsafety/internal/application/dto"
	"github.com/turtacn/touristsafety/internal/application/service"
	"github.com/turtacn/touristsafety/internal/bootstrap"
	"github.com/turtacn/touristsafety/internal/domain/models"
	domainservice "github.com/turtacn/touristsafety/internal/domain/service"
	"github.com/turtacn/touristsafety/pkg/constants"
)

func newTrainCommand(opts *rootOptions) *cobra.Command {
	var (
		samples  int
		dataFile string
		seed     int64
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the safety model and print its metrics",
		Long: `Trains the classifier on synthetic samples, or on labelled samples read from
--data (a JSON array of {"tourist_data", "location_data", "safety_score"} objects),
and persists the model artifacts configured under model.*.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withComponents(cmd.Context(), bootstrap.Options{SkipChain: true}, func(c *bootstrap.Components) error {
				if !cmd.Flags().Changed("seed") {
					seed = c.Config.Model.Seed
				}
				var (
					run *models.TrainingRun
					err error
				)
				if dataFile != "" {
					raw, readErr := os.ReadFile(dataFile)
					if readErr != nil {
						return readErr
					}
					parsed, parseErr := c.Training.ParseSamples(raw)
					if parseErr != nil {
						return parseErr
					}
					run, err = c.Training.TrainSamples(cmd.Context(), parsed, service.SourceSupplied)
				} else {
					if samples <= 0 {
						samples = c.Config.Model.SyntheticSamples
					}
					run, err = c.Training.TrainSynthetic(cmd.Context(), samples, seed)
				}
				if err != nil {
					return err
				}
				return opts.printJSON(dto.TrainResponseFrom(run))
			})
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 0, "number of synthetic samples (default model.synthetic_samples)")
	cmd.Flags().StringVar(&dataFile, "data", "", "JSON file of labelled samples")
	cmd.Flags().Int64Var(&seed, "seed", constants.DefaultRandomSeed, "random seed for synthetic data")
	return cmd
}

func newGenerateCommand(opts *rootOptions) *cobra.Command {
	var (
		samples int
		out     string
		seed    int64
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write synthetic labelled samples to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if samples <= 0 {
				return fmt.Errorf("--samples must be positive")
			}
			data := domainservice.NewSyntheticGenerator(seed).Generate(samples)
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := writeJSON(f, data); err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "wrote %d samples to %s\n", len(data), out)
			return nil
		},
	}
	cmd.Flags().IntVar(&samples, "samples", constants.DefaultSyntheticSamples, "number of samples")
	cmd.Flags().StringVar(&out, "out", "", "output file")
	cmd.Flags().Int64Var(&seed, "seed", constants.DefaultRandomSeed, "random seed")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newPredictCommand(opts *rootOptions) *cobra.Command {
	var (
		profile      models.TouristProfile
		experience   string
		transport    string
		lat, lon     float64
		radius       int
		crowd        float64
		weatherLabel string
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score one tourist and print the assessment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile.Experience = models.ExperienceLevel(experience)
			profile.Transport = models.TransportMode(transport)

			var loc *models.LocationContext
			flags := cmd.Flags()
			if flags.Changed("lat") != flags.Changed("lon") {
				return fmt.Errorf("--lat and --lon must be given together")
			}
			if flags.Changed("lat") || flags.Changed("crowd") || weatherLabel != "" {
				loc = &models.LocationContext{RadiusKm: radius, WeatherCondition: weatherLabel}
				if flags.Changed("lat") {
					loc.Latitude, loc.Longitude = &lat, &lon
				}
				if flags.Changed("crowd") {
					loc.CrowdDensity = &crowd
				}
			}

			return opts.withComponents(cmd.Context(), bootstrap.Options{SkipChain: true}, func(c *bootstrap.Components) error {
				a := c.Safety.Assess(cmd.Context(), profile, loc)
				if err := opts.printJSON(a); err != nil {
					return err
				}
				if a.Outcome == models.OutcomeFailed {
					return fmt.Errorf("assessment failed: %s", a.Error)
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.IntVar(&profile.Age, "age", 0, "tourist age")
	f.IntVar(&profile.GroupSize, "group-size", 0, "number of people travelling together")
	f.StringVar(&experience, "experience", "", "experience level: beginner, intermediate or expert")
	f.BoolVar(&profile.HasItinerary, "itinerary", false, "the tourist has a planned itinerary")
	f.IntVar(&profile.HealthScore, "health", 0, "health score 1-10")
	f.StringVar(&transport, "transport", "", "transportation mode: walking, public, private or ride_share")
	f.BoolVar(&profile.LanguageKnown, "local-language", false, "the tourist speaks the local language")
	f.Float64Var(&lat, "lat", 0, "latitude")
	f.Float64Var(&lon, "lon", 0, "longitude")
	f.IntVar(&radius, "radius", 0, "search radius in km")
	f.Float64Var(&crowd, "crowd", 0, "crowd density 0-100")
	f.StringVar(&weatherLabel, "weather-condition", "", "weather condition label")
	return cmd
}
