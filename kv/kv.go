// Package kv connects to Redis and implements the queue.Store interface on
// top of a go-redis client.
package kv

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/hashicorp/go-rootcerts"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"github.com/replicate/rsmq/logging"
)

var (
	logger       = logging.New("kv")
	errEmptyAddr = errors.New("kv: redis URL has no address")
)

// ClientOption configures the Redis client built by New.
type ClientOption func(name string, opts *redis.UniversalOptions) error

// WithPoolSize sets the connection pool size.
func WithPoolSize(size int) ClientOption {
	return func(name string, opts *redis.UniversalOptions) error {
		logger.Sugar().Infow("setting pool size", "client_name", name, "pool_size", size)
		opts.PoolSize = size
		return nil
	}
}

// WithSentinel connects through Redis Sentinel. It does nothing if
// primaryName is empty.
func WithSentinel(primaryName string, addrs []string, password string) ClientOption {
	return func(name string, opts *redis.UniversalOptions) error {
		if primaryName == "" {
			return nil
		}

		logger.Sugar().Infow(
			"using sentinel",
			"client_name", name,
			"primary_name", primaryName,
			"addrs", addrs,
		)

		opts.MasterName = primaryName
		opts.Addrs = addrs
		opts.SentinelPassword = password
		return nil
	}
}

// WithAutoTLS verifies the server certificate against the CA in caFile
// instead of the system roots. Server names are not verified. It does nothing
// unless the URL enabled TLS (rediss://).
func WithAutoTLS(caFile string) ClientOption {
	return func(name string, opts *redis.UniversalOptions) error {
		if opts.TLSConfig == nil {
			return nil
		}

		pool, err := rootcerts.LoadCACerts(&rootcerts.Config{CAFile: caFile})
		if err != nil {
			return fmt.Errorf("failed to load certs from CA file %q: %w", caFile, err)
		}

		logger.Sugar().Infow("using CA file for tls", "client_name", name, "ca_file", caFile)

		opts.TLSConfig = &tls.Config{
			// Skip default verification, which includes the server name, and
			// verify the chain against pool in VerifyConnection instead.
			InsecureSkipVerify: true,
			MinVersion:         tls.VersionTLS12,
			VerifyConnection: func(cs tls.ConnectionState) error {
				if len(cs.PeerCertificates) == 0 {
					return errors.New("server presented no certificates")
				}

				verOpts := x509.VerifyOptions{
					Intermediates: x509.NewCertPool(),
					Roots:         pool,
				}
				for _, cert := range cs.PeerCertificates[1:] {
					verOpts.Intermediates.AddCert(cert)
				}

				leaf := cs.PeerCertificates[0]
				if _, err := leaf.Verify(verOpts); err != nil {
					return fmt.Errorf("failed to verify peer certificate subject=%q: %w", leaf.Subject.String(), err)
				}
				return nil
			},
		}
		return nil
	}
}

// New builds a Redis client for the given URL, instruments it for tracing and
// checks that it can reach the server.
//
//	client, err := kv.New(ctx, "rsmq", "redis://localhost:6379", kv.WithPoolSize(10))
func New(ctx context.Context, name, url string, clientOpts ...ClientOption) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL (%s): %w", name, err)
	}
	if opts.Addr == "" {
		return nil, errEmptyAddr
	}

	uOpts := &redis.UniversalOptions{
		Addrs:        []string{opts.Addr},
		DB:           opts.DB,
		Username:     opts.Username,
		Password:     opts.Password,
		ClientName:   name,
		MaxRetries:   opts.MaxRetries,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
		PoolTimeout:  opts.PoolTimeout,
		TLSConfig:    opts.TLSConfig,
	}

	for _, o := range clientOpts {
		if err := o(name, uOpts); err != nil {
			return nil, err
		}
	}

	client := redis.NewUniversalClient(uOpts)

	if err := redisotel.InstrumentTracing(
		client,
		redisotel.WithAttributes(attribute.String("client.name", name)),
	); err != nil {
		_ = client.Close()
		return nil, err
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	logger.Sugar().Infow(
		"connected to redis",
		"client_name", name,
		"addrs", uOpts.Addrs,
		"client_type", fmt.Sprintf("%T", client),
	)

	return client, nil
}
