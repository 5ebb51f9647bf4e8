package offer

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"shopfront/internal/model"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for reading gzipped offer files.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based offer loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "offer-loader").Logger(),
	}
}

// Load reads a gzipped offer file from the local file system.
func (l *fileLoader) Load(ctx context.Context, path string) ([]model.CreateOfferRequest, error) {
	l.logger.Info().Str("file", path).Msg("loading offer file")

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open offer file")
		return nil, fmt.Errorf("failed to open offer file %s: %w", path, err)
	}
	defer file.Close()

	defs, err := readDefinitions(ctx, file, path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to read offer file")
		return nil, err
	}

	l.logger.Info().
		Str("file", path).
		Int("offers_loaded", len(defs)).
		Msg("offer file loaded successfully")

	return defs, nil
}

// readDefinitions decodes one CreateOfferRequest per non-blank line of the
// gzipped stream. Unknown fields are rejected.
func readDefinitions(ctx context.Context, r io.Reader, source string) ([]model.CreateOfferRequest, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var defs []model.CreateOfferRequest
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var def model.CreateOfferRequest
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("invalid offer definition at %s:%d: %w", source, lineNo, err)
		}
		defs = append(defs, def)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading offer file %s: %w", source, err)
	}

	return defs, nil
}
