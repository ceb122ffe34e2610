package githost

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 64

// Factory hands out one Client per access token. Clients are kept in an LRU
// keyed by a hash of the token, so raw tokens are never used as map keys.
type Factory struct {
	baseURL string
	cache   *lru.Cache[string, *Client]
}

func NewFactory(baseURL string, size int) (*Factory, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, *Client](size)
	if err != nil {
		return nil, fmt.Errorf("create github client cache: %w", err)
	}
	return &Factory{baseURL: strings.TrimSpace(baseURL), cache: cache}, nil
}

func (f *Factory) ForToken(token string) (*Client, error) {
	key := tokenKey(token)
	if c, ok := f.cache.Get(key); ok {
		return c, nil
	}
	c, err := NewClient(token, f.baseURL)
	if err != nil {
		return nil, err
	}
	f.cache.Add(key, c)
	return c, nil
}

// Host satisfies the publisher's factory signature.
func (f *Factory) Host(token string) (Host, error) {
	c, err := f.ForToken(token)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Reader satisfies the ingestion factory signature.
func (f *Factory) Reader(token string) (RepositoryReader, error) {
	c, err := f.ForToken(token)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (f *Factory) Len() int { return f.cache.Len() }

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
