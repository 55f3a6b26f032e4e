package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"MinerviniScreener/internal/model"
)

// SP500ConstituentsURL lists the S&P 500 members with Symbol and Security columns.
const SP500ConstituentsURL = "https://raw.githubusercontent.com/datasets/s-and-p-500-companies/main/data/constituents.csv"

// UniverseProvider lists the symbols of a named index.
type UniverseProvider interface {
	ListSymbols(ctx context.Context, index string) ([]model.Symbol, error)
}

// StaticUniverse serves symbol lists configured up front.
type StaticUniverse map[string][]model.Symbol

func (s StaticUniverse) ListSymbols(_ context.Context, index string) ([]model.Symbol, error) {
	syms, ok := s[strings.ToLower(index)]
	if !ok || len(syms) == 0 {
		return nil, fmt.Errorf("index %q: %w", index, model.ErrUniverseUnavailable)
	}
	out := make([]model.Symbol, len(syms))
	copy(out, syms)
	return out, nil
}

// ChainUniverse asks each provider in order and returns the first list found.
type ChainUniverse []UniverseProvider

func (c ChainUniverse) ListSymbols(ctx context.Context, index string) ([]model.Symbol, error) {
	var errs []error
	for _, p := range c {
		syms, err := p.ListSymbols(ctx, index)
		if err == nil {
			return syms, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("index %q: %w: %w", index, model.ErrUniverseUnavailable, errors.Join(errs...))
}

// ResolveSymbols turns tickers into symbols, taking display names from the
// members of index. The symbols are always returned; tickers the index does
// not list keep an empty name, and a listing failure is returned alongside.
func ResolveSymbols(ctx context.Context, p UniverseProvider, index string, tickers []string) ([]model.Symbol, error) {
	out := make([]model.Symbol, len(tickers))
	for i, t := range tickers {
		out[i] = model.Symbol{Ticker: strings.ToUpper(strings.TrimSpace(t))}
	}
	members, err := p.ListSymbols(ctx, index)
	if err != nil {
		return out, err
	}
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[strings.ToUpper(m.Ticker)] = m.Name
	}
	for i := range out {
		out[i].Name = names[out[i].Ticker]
	}
	return out, nil
}

// CSVUniverse reads index members from CSV documents. A source is either an
// http(s) URL or a local file path.
type CSVUniverse struct {
	Sources map[string]string
	Client  HTTPClient
}

// NewCSVUniverse creates a provider with the S&P 500 list preregistered as "sp500".
func NewCSVUniverse(proxyURL string, extra map[string]string) *CSVUniverse {
	sources := map[string]string{"sp500": SP500ConstituentsURL}
	for k, v := range extra {
		sources[strings.ToLower(k)] = v
	}
	return &CSVUniverse{Sources: sources, Client: newHTTPClient(proxyURL, 30*time.Second)}
}

func (u *CSVUniverse) ListSymbols(ctx context.Context, index string) ([]model.Symbol, error) {
	src, ok := u.Sources[strings.ToLower(index)]
	if !ok {
		return nil, fmt.Errorf("index %q not configured: %w", index, model.ErrUniverseUnavailable)
	}
	rc, err := u.open(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", src, err, model.ErrUniverseUnavailable)
	}
	defer rc.Close()

	syms, err := parseConstituents(rc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %v: %w", src, err, model.ErrUniverseUnavailable)
	}
	if len(syms) == 0 {
		return nil, fmt.Errorf("%s lists no symbols: %w", src, model.ErrUniverseUnavailable)
	}
	return syms, nil
}

func (u *CSVUniverse) open(ctx context.Context, src string) (io.ReadCloser, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.Open(src)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := u.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// parseConstituents reads a CSV with a ticker column (Symbol or Ticker) and
// an optional name column (Security or Name).
func parseConstituents(r io.Reader) ([]model.Symbol, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	tickerCol, nameCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "symbol", "ticker":
			tickerCol = i
		case "security", "name":
			nameCol = i
		}
	}
	if tickerCol < 0 {
		return nil, fmt.Errorf("no symbol column in header %v", header)
	}

	var syms []model.Symbol
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if tickerCol >= len(rec) {
			continue
		}
		ticker := strings.TrimSpace(rec[tickerCol])
		if ticker == "" {
			continue
		}
		sym := model.Symbol{Ticker: ticker}
		if nameCol >= 0 && nameCol < len(rec) {
			sym.Name = strings.TrimSpace(rec[nameCol])
		}
		syms = append(syms, sym)
	}
	return syms, nil
}
