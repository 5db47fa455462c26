package blob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Signer generates and validates HMAC signatures for local stream links.
type Signer struct {
	secret []byte
	clock  func() time.Time
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, clock: time.Now}
}

// Sign returns the hex signature for key and expiry.
func (s *Signer) Sign(key string, expiresUnix int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(fmt.Sprintf("%s:%d", key, expiresUnix)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate checks the signature and that the link has not expired.
func (s *Signer) Validate(key, expires, signature string) bool {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	if s.clock().Unix() > exp {
		return false
	}
	expected := s.Sign(key, exp)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// LocalLinker issues signed stream URLs for blobs served by this process.
type LocalLinker struct {
	store   Store
	signer  *Signer
	baseURL string
	ttl     time.Duration
}

func NewLocalLinker(store Store, signer *Signer, baseURL string, ttl time.Duration) *LocalLinker {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &LocalLinker{
		store:   store,
		signer:  signer,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		ttl:     ttl,
	}
}

func (l *LocalLinker) Link(ctx context.Context, key string) (Reference, error) {
	if _, err := l.store.Stat(ctx, key); err != nil {
		return Reference{}, err
	}
	expires := l.signer.clock().Add(l.ttl).Truncate(time.Second)
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires.Unix(), 10))
	q.Set("sig", l.signer.Sign(key, expires.Unix()))
	return Reference{
		URL:       fmt.Sprintf("%s/videos/%s/stream?%s", l.baseURL, url.PathEscape(key), q.Encode()),
		ExpiresAt: expires,
	}, nil
}
