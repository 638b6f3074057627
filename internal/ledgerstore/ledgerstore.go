// Package ledgerstore fetches staking-ledger snapshots from an S3-compatible
// object store and unpacks them into the in-memory Ledger model, caching
// the decompressed JSON on local disk so repeated lookups of the same
// ledger hash skip the network round-trip.
package ledgerstore

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"ocvd/internal/ledger"
)

// Config configures the object-store client and local disk cache.
type Config struct {
	Endpoint    string
	AccessKey   string
	SecretKey   string
	Bucket      string
	Secure      bool
	Network     string
	StoragePath string
}

// Store fetches and caches staking-ledger snapshots.
type Store struct {
	client      *minio.Client
	bucket      string
	network     string
	storagePath string
}

// New builds a Store from cfg, connecting the underlying minio-go client.
func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("ledgerstore: create client: %w", err)
	}
	return &Store{
		client:      client,
		bucket:      cfg.Bucket,
		network:     cfg.Network,
		storagePath: cfg.StoragePath,
	}, nil
}

// objectKey is the object-store key for a ledger snapshot:
// "{network}/{network}-{epoch}-{hash}".
func (s *Store) objectKey(epoch int64, hash string) string {
	return fmt.Sprintf("%s/%s-%d-%s", s.network, s.network, epoch, hash)
}

func (s *Store) diskCachePath(epoch int64, hash string) string {
	return filepath.Join(s.storagePath, fmt.Sprintf("%s-%d-%s.json", s.network, epoch, hash))
}

// Fetch returns the ledger snapshot for (epoch, hash), serving it from the
// local disk cache when present and otherwise downloading and unpacking it
// from the object store, then caching the unpacked JSON to disk.
func (s *Store) Fetch(ctx context.Context, epoch int64, hash string) (*ledger.Ledger, error) {
	cachePath := s.diskCachePath(epoch, hash)
	if raw, err := os.ReadFile(cachePath); err == nil {
		return decodeLedger(raw)
	}

	raw, err := s.download(ctx, epoch, hash)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.storagePath, 0o755); err == nil {
		_ = os.WriteFile(cachePath, raw, 0o644)
	}

	return decodeLedger(raw)
}

func (s *Store) download(ctx context.Context, epoch int64, hash string) ([]byte, error) {
	key := s.objectKey(epoch, hash)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("ledgerstore: get object %s: %w", key, err)
	}
	defer obj.Close()

	gz, err := gzip.NewReader(obj)
	if err != nil {
		return nil, fmt.Errorf("ledgerstore: open gzip stream for %s: %w", key, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("ledgerstore: %s: tar archive contains no file", key)
		}
		if err != nil {
			return nil, fmt.Errorf("ledgerstore: read tar header for %s: %w", key, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("ledgerstore: read tar entry %s: %w", hdr.Name, err)
		}
		return body, nil
	}
}

// rawAccount mirrors the JSON shape of one LedgerAccount entry in the
// snapshot file.
type rawAccount struct {
	PK       string `json:"pk"`
	Balance  string `json:"balance"`
	Delegate string `json:"delegate"`
}

func decodeLedger(raw []byte) (*ledger.Ledger, error) {
	var accounts []rawAccount
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("ledgerstore: decode ledger json: %w", err)
	}
	out := make([]ledger.Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, ledger.Account{PK: a.PK, Balance: a.Balance, Delegate: a.Delegate})
	}
	return ledger.New(out), nil
}
