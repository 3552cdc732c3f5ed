package refstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/httpclient"
)

// tableFileNames maps the table names the download subcommand accepts
// (§6's CLI surface, --table T) to the local cache file/directory the rest
// of the package reads them from. Per-block tables (trace snapshots,
// cex_quotes, metadata) are fetched one file per block from start through
// end, both inclusive; the five whole-run tables below are fetched as a
// single file each.
var tableFileNames = map[string]string{
	"token_decimals":      "token_decimals.json",
	"address_to_tokens":   "address_to_tokens.json",
	"address_to_protocol": "address_to_protocol.json",
	"pool_creation_blocks": "pool_creation_blocks.json",
	"cex_trades":          "cex_trades.json",
}

var perBlockTables = map[string]string{
	"cex_quotes": "cex_quotes",
	"metadata":   "metadata",
	"traces":     "traces",
}

// Downloader pulls pre-exported JSON table snapshots from sourceURL over
// HTTP into the local DB_PATH cache — standing in for the out-of-scope
// ClickHouse driver the source's own `download` tool talks to.
type Downloader struct {
	client    httpclient.Client
	sourceURL string
	cacheDir  string
}

// NewDownloader builds a Downloader fetching from sourceURL into cacheDir.
func NewDownloader(client httpclient.Client, sourceURL, cacheDir string) *Downloader {
	return &Downloader{client: client, sourceURL: sourceURL, cacheDir: cacheDir}
}

// Download fetches table for the inclusive [startBlock, endBlock] range
// (ignored for whole-run tables) into the cache. clear removes any
// existing cached copy first.
func (d *Downloader) Download(ctx context.Context, table string, startBlock, endBlock uint64, clear bool) error {
	if name, ok := tableFileNames[table]; ok {
		return d.downloadWholeTable(ctx, table, name, clear)
	}
	if subdir, ok := perBlockTables[table]; ok {
		return d.downloadPerBlockTable(ctx, table, subdir, startBlock, endBlock, clear)
	}
	return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("download: unknown table "+table))
}

func (d *Downloader) downloadWholeTable(ctx context.Context, table, fileName string, clear bool) error {
	dest := filepath.Join(d.cacheDir, fileName)
	if clear {
		_ = os.Remove(dest)
	}
	return d.fetchInto(ctx, "/tables/"+table, dest)
}

func (d *Downloader) downloadPerBlockTable(ctx context.Context, table, subdir string, startBlock, endBlock uint64, clear bool) error {
	dir := filepath.Join(d.cacheDir, subdir)
	if clear {
		_ = os.RemoveAll(dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperror.Wrap(err, apperror.CodeStoreWriteFailed, "download: mkdir "+dir)
	}
	for block := startBlock; block <= endBlock; block++ {
		dest := filepath.Join(dir, fmt.Sprintf("%d.json", block))
		remote := fmt.Sprintf("/tables/%s/%d", table, block)
		if err := d.fetchInto(ctx, remote, dest); err != nil {
			return err
		}
		if block == endBlock {
			break // guards against endBlock == max uint64 wrapping the loop
		}
	}
	return nil
}

func (d *Downloader) fetchInto(ctx context.Context, path, dest string) error {
	resp, err := d.client.NewRequest().Get(ctx, d.sourceURL+path)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeExternalServiceError, "download: fetch "+path)
	}
	if !resp.IsSuccess() {
		return apperror.New(apperror.CodeExternalServiceError,
			apperror.WithContext(fmt.Sprintf("download: %s returned status %d", path, resp.StatusCode)))
	}
	if err := os.WriteFile(dest, resp.Body(), 0o644); err != nil {
		return apperror.Wrap(err, apperror.CodeStoreWriteFailed, "download: write "+dest)
	}
	return nil
}
