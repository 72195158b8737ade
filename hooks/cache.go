package hooks

import (
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/kbukum/apikit/contract"
)

// Cache applies a cache tag. A request carrying Cache-Control: no-cache
// skips the read, no-store skips the write.
type Cache struct {
	single
	Spec contract.CacheSpec
}

func (*Cache) HookKey() string { return contract.TagCache }

func (c *Cache) Policy(cc *contract.CallContext) contract.CachePolicy {
	p := contract.CachePolicy{Read: c.Spec.Read, Write: c.Spec.Write}
	for _, v := range cc.Request.Header.Values("Cache-Control") {
		for _, d := range strings.Split(v, ",") {
			switch strings.ToLower(strings.TrimSpace(d)) {
			case "no-cache":
				p.Read = false
			case "no-store":
				p.Write = false
			}
		}
	}
	return p
}

// Key hashes the method, the resolved URL, the Vary headers and a buffered
// body. The operation id prefixes the hash.
func (c *Cache) Key(cc *contract.CallContext) (string, error) {
	u, err := cc.Request.URL()
	if err != nil {
		return "", err
	}
	h := xxhash.New()
	_, _ = h.WriteString(cc.Request.Method)
	_, _ = h.WriteString("\n")
	_, _ = h.WriteString(u.String())
	for _, name := range c.Spec.Vary {
		_, _ = h.WriteString("\n" + name + ":")
		_, _ = h.WriteString(strings.Join(cc.Request.Header.Values(name), ","))
	}
	if body := cc.Request.BodyBytes(); body != nil {
		_, _ = h.WriteString("\n")
		_, _ = h.Write(body)
	}
	return fmt.Sprintf("%s:%016x", cc.Operation().ID(), h.Sum64()), nil
}

func (c *Cache) TTL() time.Duration { return c.Spec.TTL }

func (c *Cache) Store() string { return c.Spec.Store }
