package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/hakim/vulntriage/internal/apiclient"
	"github.com/hakim/vulntriage/internal/telemetry"
)

// newClient builds the backend client from the loaded config. metrics may
// be nil.
func newClient(metrics *telemetry.Metrics) *apiclient.Client {
	opts := apiclient.Options{
		BaseURL:   cfg.API.BaseURL,
		Prefix:    cfg.API.Prefix,
		Timeout:   cfg.APITimeout(),
		RateLimit: cfg.API.RateLimit,
		Burst:     cfg.API.Burst,
		UserAgent: "vulntriage/" + version,
		Logger:    logger,
	}
	if metrics != nil {
		opts.Observer = metrics
	}
	return apiclient.New(opts)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// parseID parses a positive numeric id argument.
func parseID(kind, raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, raw)
	}
	return id, nil
}

// parseIDs parses a comma separated list of positive ids.
func parseIDs(kind, raw string) ([]int, error) {
	var ids []int
	for _, part := range splitCSV(raw) {
		id, err := parseID(kind, part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// splitCSV splits a comma-separated string and trims whitespace from each element.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// failure prints the user-facing message of a backend error and returns the
// error for cobra.
func failure(action string, err error) error {
	fmt.Printf("[!] %s failed: %s\n", action, apiclient.UserMessage(err))
	return fmt.Errorf("%s: %w", strings.ToLower(action), err)
}
