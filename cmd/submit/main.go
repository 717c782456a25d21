// Command submit sends one lead to the configured waitlist endpoint. It is
// meant for smoke-testing a deployment's WAITLIST_ENDPOINT.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/swcolombo/waitlist-api/config"
	"github.com/swcolombo/waitlist-api/internal/form"
	"github.com/swcolombo/waitlist-api/internal/services"
	"github.com/swcolombo/waitlist-api/pkg/httpclient"
	"github.com/swcolombo/waitlist-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		ServiceName: "waitlist-submit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	os.Exit(run(cfg, os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, submits once (plus one retry when asked) and returns the exit code
func run(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("submit", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	values := map[string]*string{
		"name":        flags.String("name", "", "full name"),
		"email":       flags.String("email", "", "email address"),
		"designation": flags.String("designation", "", "designation (professional field set)"),
		"company":     flags.String("company", "", "company (professional field set)"),
		"contact":     flags.String("contact", "", "contact number (professional field set)"),
	}
	fieldSet := flags.String("field-set", cfg.Waitlist.FieldSet, "basic or professional")
	retry := flags.Bool("retry", false, "retry once after a transport failure")

	if err := flags.Parse(args); err != nil {
		return 2
	}
	switch set := strings.ToLower(strings.TrimSpace(*fieldSet)); set {
	case config.FieldSetBasic, config.FieldSetProfessional:
		cfg.Waitlist.FieldSet = set
	default:
		fmt.Fprintf(stderr, "invalid --field-set %q: must be %q or %q\n", *fieldSet, config.FieldSetBasic, config.FieldSetProfessional)
		return 2
	}

	service := services.NewWaitlistService(cfg, httpclient.NewStandardClient(cfg.Waitlist.Timeout()+5*time.Second))
	f := form.New(service)
	for _, field := range []string{"name", "email", "designation", "company", "contact"} {
		if err := f.Set(field, *values[field]); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
	}

	ctx := context.Background()
	res := f.Submit(ctx)
	if !res.OK && res.Retryable && *retry {
		logger.Info("Retrying waitlist submission", zap.String("reason", res.Message))
		if retried, err := f.Retry(ctx); err == nil {
			res = retried
		}
	}

	fmt.Fprintln(stdout, res.Message)
	if !res.OK {
		return 1
	}
	return 0
}
