// Package reportcache memoizes computed books so that the same transaction
// log is replayed once, whatever the number of reports asked from it.
//
// The cache sits outside the engine: a miss is a plain taxlot.Compute, and a
// changed log is a different key.
package reportcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/etnz/taxlot"
	"github.com/patrickmn/go-cache"
)

const (
	DefaultExpiration = 15 * time.Minute
	CleanupInterval   = 30 * time.Minute
)

// Cache memoizes taxlot.Book values by log content.
type Cache struct {
	books *cache.Cache
}

// New creates a cache whose entries expire after expiration.
func New(expiration, cleanup time.Duration) *Cache {
	return &Cache{books: cache.New(expiration, cleanup)}
}

// Key returns the cache key of a log replayed with method and selections.
func Key(txs []taxlot.Transaction, method taxlot.AccountingMethod, selections taxlot.Selections) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "method=%s\n", method)
	if err := taxlot.EncodeTransactions(h, txs); err != nil {
		return "", err
	}
	fmt.Fprintln(h, "selections")
	if err := taxlot.EncodeSelections(h, selections); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Book returns the book of txs, computing it on a miss. Errors are not cached.
func (c *Cache) Book(txs []taxlot.Transaction, method taxlot.AccountingMethod, selections taxlot.Selections) (*taxlot.Book, error) {
	key, err := Key(txs, method, selections)
	if err != nil {
		return nil, fmt.Errorf("cannot compute cache key: %w", err)
	}
	if v, found := c.books.Get(key); found {
		return v.(*taxlot.Book), nil
	}
	book, err := taxlot.Compute(txs, method, selections)
	if err != nil {
		return nil, err
	}
	c.books.Set(key, book, cache.DefaultExpiration)
	return book, nil
}

// Report returns the report of year for txs.
func (c *Cache) Report(txs []taxlot.Transaction, method taxlot.AccountingMethod, selections taxlot.Selections, year int) (taxlot.TaxYearReport, error) {
	book, err := c.Book(txs, method, selections)
	if err != nil {
		return taxlot.TaxYearReport{}, err
	}
	return book.Report(year), nil
}

// Len returns the number of books in the cache, expired or not.
func (c *Cache) Len() int { return c.books.ItemCount() }

// Flush empties the cache.
func (c *Cache) Flush() { c.books.Flush() }
