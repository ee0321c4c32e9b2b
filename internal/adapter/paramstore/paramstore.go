// Package paramstore resolves the fallback upstream credential from AWS SSM
// Parameter Store.
package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// DefaultTTL is how long a resolved parameter is reused before re-reading it.
const DefaultTTL = 5 * time.Minute

// ssmAPI is the subset of *ssm.Client used here.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// KeySource yields the server-side API key.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// Store reads one SecureString parameter and caches its value.
type Store struct {
	api  ssmAPI
	name string
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	value   string
	fetched time.Time
}

// New returns a Store reading the parameter called name.
func New(api ssmAPI, name string, ttl time.Duration) (*Store, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("paramstore: parameter name is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{api: api, name: name, ttl: ttl, now: time.Now}, nil
}

// APIKey returns the cached parameter value, refreshing it once the TTL lapses.
func (s *Store) APIKey(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.value != "" && s.now().Sub(s.fetched) < s.ttl {
		return s.value, nil
	}

	out, err := s.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", s.name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("paramstore: parameter %q has no value", s.name)
	}
	value := strings.TrimSpace(*out.Parameter.Value)
	if value == "" {
		return "", fmt.Errorf("paramstore: parameter %q is empty", s.name)
	}

	s.value = value
	s.fetched = s.now()
	return value, nil
}
