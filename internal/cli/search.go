package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stwalsh4118/propsearch/internal/fixture"
	"github.com/stwalsh4118/propsearch/internal/logger"
	"github.com/stwalsh4118/propsearch/internal/models"
	"github.com/stwalsh4118/propsearch/internal/publisher"
	"github.com/stwalsh4118/propsearch/internal/search"
	"github.com/stwalsh4118/propsearch/internal/services"
)

// ErrSearchFailed is returned after the failure message has been printed.
var ErrSearchFailed = errors.New("search failed")

type searchOptions struct {
	city     string
	area     string
	maxPrice string
	category string
	propType string
	useAPI   bool
	asJSON   bool
}

func newSearchCmd() *cobra.Command {
	opts := &searchOptions{}

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Run one property search and print the result",
		Long: `Run one property search and print the matching properties.

Without --api the bundled fixture is returned after FIXTURE_DELAY.
With --api the request goes to the resolved search service.`,
		Example: `  propsearch search --city mumbai --area "andheri east" --max-price "₹2 Cr" --api
  propsearch search --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts)
		},
	}

	flags := searchCmd.Flags()
	flags.StringVar(&opts.city, "city", "", "city to search in")
	flags.StringVar(&opts.area, "area", "", "area within the city")
	flags.StringVar(&opts.maxPrice, "max-price", "", `price ceiling, e.g. "₹50 L" or "₹2 Cr"`)
	flags.StringVar(&opts.category, "category", string(models.CategoryResidential), "Residential or Commercial")
	flags.StringVar(&opts.propType, "type", string(models.TypeFlat), `Flat or "Independent House"`)
	flags.BoolVar(&opts.useAPI, "api", false, "query the search service instead of the fixture")
	flags.BoolVar(&opts.asJSON, "json", false, "print the outcome as JSON")

	return searchCmd
}

func (o *searchOptions) params() (models.SearchParams, error) {
	category, err := models.ParsePropertyCategory(o.category)
	if err != nil {
		return models.SearchParams{}, err
	}
	propType, err := models.ParsePropertyType(o.propType)
	if err != nil {
		return models.SearchParams{}, err
	}
	return models.SearchParams{
		City:             strings.TrimSpace(o.city),
		Area:             strings.TrimSpace(o.area),
		MaxPriceText:     o.maxPrice,
		PropertyCategory: category,
		PropertyType:     propType,
		UseAPI:           o.useAPI,
	}, nil
}

func runSearch(cmd *cobra.Command, opts *searchOptions) error {
	params, err := opts.params()
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logger.NewWithWriter(cfg.Server.Env, cmd.ErrOrStderr())

	payload, err := fixture.Load(cfg.Fixture.Path)
	if err != nil {
		return err
	}

	builder := search.NewBuilder(cfg.BuilderConfig(), log)
	executor := search.NewExecutor(cfg.ExecutorConfig(payload), log)
	service := services.NewSearchService(builder, executor, nil, cfg.BaseURL(), log)

	queue := publisher.NewQueue()
	pub := publisher.New(queue, log)
	ticket := pub.Begin()

	result, err := service.Search(cmd.Context(), params, services.Origin{Generation: ticket.Generation()})
	if err != nil {
		pub.FailWith(ticket, err)
	} else {
		pub.Succeed(ticket, result)
	}

	outcome := pub.Outcome()
	if opts.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcome); err != nil {
			return err
		}
	} else {
		printOutcome(cmd.OutOrStdout(), outcome)
	}

	for _, note := range queue.Drain() {
		fmt.Fprintln(cmd.ErrOrStderr(), note.Message)
	}
	if outcome.State == publisher.StateFailed {
		return ErrSearchFailed
	}
	return nil
}

func printOutcome(out io.Writer, outcome publisher.Outcome) {
	if outcome.State == publisher.StateFailed {
		fmt.Fprintf(out, "Search failed (%s)\n", outcome.ErrorKind)
		return
	}
	if outcome.NoMatches() {
		fmt.Fprintln(out, "No properties matched your search.")
		return
	}
	if outcome.Degraded {
		fmt.Fprintf(out, "Warning: %s\n\n", outcome.Warning)
	}

	fmt.Fprintf(out, "%d properties found\n", len(outcome.Records))
	for i, record := range outcome.Records {
		fmt.Fprintf(out, "\n%d. %s\n", i+1, record.Name)
		fmt.Fprintf(out, "   Location: %s\n", record.Location)
		if record.Price != "" {
			fmt.Fprintf(out, "   Price:    %s\n", record.Price)
		}
		if len(record.KeyFeatures) > 0 {
			fmt.Fprintf(out, "   Features: %s\n", strings.Join(record.KeyFeatures, ", "))
		}
		if record.PropertyURL != "" {
			fmt.Fprintf(out, "   Link:     %s\n", record.PropertyURL)
		}
	}

	for _, insight := range outcome.Insights {
		fmt.Fprintf(out, "\nAbout %s\n", insight.Area)
		for _, advantage := range insight.Advantages {
			fmt.Fprintf(out, "   + %s\n", advantage)
		}
	}
}
