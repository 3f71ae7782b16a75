// Package export projects the merged catalog into the published card
// document and writes it as JSON, as a merged CSV table or as an XLSX
// workbook.
package export

import (
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/cardmap/internal/fsutil"
	"github.com/agentstation/cardmap/pkg/cards"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/logging"
	"github.com/agentstation/cardmap/pkg/save"
)

// Lookup is the read side of a reading dictionary.
type Lookup interface {
	Get(name string) (string, bool)
}

// Exporter builds and writes card documents.
type Exporter struct {
	random io.Reader
	logger *zerolog.Logger
}

// Option customizes an Exporter.
type Option func(*Exporter)

// WithRandom sets the source of random identifiers used for cards without
// an image id. A fixed reader makes those identifiers reproducible.
func WithRandom(r io.Reader) Option {
	return func(e *Exporter) {
		e.random = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an exporter.
func New(opts ...Option) *Exporter {
	e := &Exporter{logger: logging.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Documents projects every canonical record. The identifier is
// "<cardNumber>_<imageFileId>", or "<cardNumber>_<random uuid>" when the
// image id is empty; such identifiers change from run to run unless a fixed
// random source is set. Records without a card number are skipped and a
// repeated identifier is emitted once.
func (e *Exporter) Documents(catalog *cards.Catalog, dict Lookup) ([]Document, error) {
	docs := make([]Document, 0, catalog.Stats.Canonical)
	seen := make(map[string]struct{})

	for _, c := range catalog.Canonical() {
		number := strings.TrimSpace(c.CardNumber)
		if number == "" {
			continue
		}

		suffix := strings.TrimSpace(c.ImageFileID)
		if suffix == "" {
			id, err := e.newUUID()
			if err != nil {
				return nil, errors.WrapResource("generate", "identifier", number, err)
			}
			suffix = id.String()
			e.logger.Debug().Str("card_number", number).Msg("No image id, using random identifier")
		}
		uniqueID := number + "_" + suffix
		if _, dup := seen[uniqueID]; dup {
			continue
		}
		seen[uniqueID] = struct{}{}

		reading, _ := dict.Get(c.Name)
		docs = append(docs, project(c, uniqueID, reading))
	}
	return docs, nil
}

func (e *Exporter) newUUID() (uuid.UUID, error) {
	if e.random != nil {
		return uuid.NewRandomFromReader(e.random)
	}
	return uuid.NewRandom()
}

// Save writes the catalog in the format chosen by opts. With a writer the
// output is streamed to it; otherwise it is written atomically to the path.
func (e *Exporter) Save(catalog *cards.Catalog, dict Lookup, opts ...save.Option) error {
	options := save.Defaults().Apply(opts...)

	var write func(io.Writer) error
	switch options.Format() {
	case save.FormatJSON:
		docs, err := e.Documents(catalog, dict)
		if err != nil {
			return err
		}
		write = func(w io.Writer) error { return WriteJSON(w, docs) }
	case save.FormatCSV:
		write = func(w io.Writer) error { return WriteCSV(w, catalog, dict) }
	case save.FormatXLSX:
		write = func(w io.Writer) error { return WriteXLSX(w, catalog, dict) }
	default:
		return errors.NewValidationError("format", options.Format(), "unsupported export format")
	}

	if w := options.Writer(); w != nil {
		return write(w)
	}
	if options.Path() == "" {
		return errors.NewValidationError("path", nil, "either a path or a writer is required")
	}
	if err := fsutil.WriteAtomic(options.Path(), write); err != nil {
		return err
	}
	e.logger.Info().
		Str("format", options.Format().String()).
		Str("path", options.Path()).
		Msg("Exported catalog")
	return nil
}
