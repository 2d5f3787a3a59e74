package provider

import (
	"fmt"
	"strings"

	"vidrelay/internal/config"
	"vidrelay/internal/httputil"
)

// Build constructs providers by name, preserving the given order.
// When names is empty the configured provider list is used.
func Build(cfg *config.Config, names []string) ([]Provider, error) {
	if len(names) == 0 {
		names = cfg.Providers
	}

	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case config.ProviderRelay:
			providers = append(providers, NewRelay(RelayOptions{
				Endpoint:  cfg.Relay.Endpoint,
				Origin:    cfg.Relay.Origin,
				Referer:   cfg.Relay.Referer,
				UserAgent: cfg.Relay.UserAgent,
				Timeout:   cfg.Relay.Timeout.Duration,
			}))
		case config.ProviderDirect:
			engine, err := buildEngine(cfg.Direct)
			if err != nil {
				return nil, err
			}
			providers = append(providers, NewDirect(engine))
		case config.ProviderScrape:
			providers = append(providers, NewScrape(ScrapeOptions{
				Base:         cfg.Scrape.Base,
				FrameBase:    cfg.Scrape.FrameBase,
				DownloadBase: cfg.Scrape.DownloadBase,
				Timeout:      cfg.Scrape.Timeout.Duration,
			}))
		case config.ProviderYtdown:
			providers = append(providers, NewYtdown(YtdownOptions{
				Base:         cfg.Ytdown.Base,
				PollInterval: cfg.Ytdown.PollInterval.Duration,
				MaxPolls:     cfg.Ytdown.MaxPolls,
				Timeout:      cfg.Ytdown.Timeout.Duration,
			}))
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
	}
	return providers, nil
}

func buildEngine(cfg config.DirectConfig) (Engine, error) {
	switch strings.ToLower(cfg.Engine) {
	case "", "yt-dlp":
		return NewYTDLP(cfg.Binary, cfg.Timeout.Duration), nil
	case "native":
		return NewNative(httputil.NewClient(cfg.Timeout.Duration)), nil
	default:
		return nil, fmt.Errorf("unknown direct engine %q", cfg.Engine)
	}
}
