package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/elibrary/elibrary-server/internal/config"
	"github.com/elibrary/elibrary-server/internal/logger"
	"github.com/elibrary/elibrary-server/internal/search"
	"github.com/elibrary/elibrary-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.BookIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve catalog index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewBookIndex(search.Options{
		DataPath: cfg.SearchIndexPath(),
		Logger:   log.Component("search"),
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{BookIndex: index}, nil
}

// TriggerSearchReindexIfNeeded rebuilds the index in the background when its
// document count differs from the number of books in the database, e.g. after
// the index directory was removed or a write to it failed. Call after all
// services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	catalog := do.MustInvoke[*service.CatalogService](i)
	log := do.MustInvoke[*logger.Logger](i)

	bookCount, err := storeHandle.CountBooks(context.Background())
	if err != nil {
		log.WithError(err).Warn("Skipping search index check")
		return
	}
	docCount, err := indexHandle.DocumentCount()
	if err == nil && docCount == uint64(bookCount) {
		return
	}

	log.Info("Search index out of sync with catalog, rebuilding",
		"books", bookCount,
		"documents", docCount,
	)

	go func() {
		if err := catalog.Reindex(context.Background()); err != nil {
			log.WithError(err).Error("Search reindex failed")
			return
		}
		count, _ := indexHandle.DocumentCount()
		log.Info("Search reindex completed", "documents", count)
	}()
}
