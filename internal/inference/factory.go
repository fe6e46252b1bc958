package inference

import (
	"fmt"
	"strings"

	"github.com/konteragroup/kontera/internal/common"
)

// NewClient creates an inference client for the configured provider.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		return newAnthropicClient(cfg)
	case "openai":
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported inference provider %q", common.ErrInvalidConfig, cfg.Provider)
	}
}
