package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/wbdigital-chatbot/server/internal/agent/model"
	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

// CompanyDocumentID is the fixed id of the single company profile document.
const CompanyDocumentID = "company_info"

const defaultBootstrapRetry = 30 * time.Second

const fallbackCompanyInfo = `WB Digital Solutions builds premium custom websites, e-commerce stores,
business process automation and AI-driven solutions (chatbots, assistants, integrations).
Projects follow Discovery, Design, Development, Testing and Launch, typically in 4 to 12 weeks,
with post-launch support, hosting, SEO and multilingual delivery.`

// Bootstrap ensures both collections exist and seeds the company profile from path.
// A missing file seeds a built-in summary instead.
func Bootstrap(ctx context.Context, store model.VectorStore, emb model.Embedder, cfg model.AugmentConfig) error {
	dims := emb.Dimensions()
	for _, c := range []string{cfg.CompanyCollection, cfg.LogCollection} {
		if err := store.EnsureCollection(ctx, c, dims); err != nil {
			return fmt.Errorf("ensure collection %s: %w", c, err)
		}
	}

	text, err := readCompanyInfo(cfg.CompanyInfoPath)
	if err != nil {
		return err
	}

	vec, err := emb.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed company info: %w", err)
	}
	if err := store.Upsert(ctx, cfg.CompanyCollection, CompanyDocumentID, vec, model.Payload{
		"content": text,
		"source":  cfg.CompanyInfoPath,
	}); err != nil {
		return fmt.Errorf("seed company info: %w", err)
	}

	logx.Info().Str("collection", cfg.CompanyCollection).Int("chars", len(text)).Msg("company info seeded")
	return nil
}

// RetryBootstrap runs Bootstrap every interval until it succeeds or ctx is done.
// The returned channel is closed when the loop exits.
func RetryBootstrap(ctx context.Context, store model.VectorStore, emb model.Embedder, cfg model.AugmentConfig, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = defaultBootstrapRetry
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			err := Bootstrap(ctx, store, emb, cfg)
			if err == nil {
				return
			}
			logx.Warn().Err(err).Dur("retry_in", interval).Msg("vector store bootstrap failed")
		}
	}()
	return done
}

func readCompanyInfo(path string) (string, error) {
	if path == "" {
		return fallbackCompanyInfo, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logx.Warn().Str("path", path).Msg("company info file not found, using built-in summary")
		return fallbackCompanyInfo, nil
	}
	if err != nil {
		return "", fmt.Errorf("read company info: %w", err)
	}
	if text := strings.TrimSpace(string(b)); text != "" {
		return text, nil
	}
	return fallbackCompanyInfo, nil
}
