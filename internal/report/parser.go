package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/treadline/invoice-ingest-service/internal/domain"
)

// Parse tokenizes, classifies and assembles a whole report stream,
// returning the invoices it contains in file order. The only error
// condition is a failed read; malformed content degrades per row and is
// reported through the stats instead.
func Parse(r io.Reader) ([]*domain.Invoice, AssemblerStats, error) {
	assembler := NewAssembler()

	scanner := bufio.NewScanner(r)
	// Report rows with embedded items run long; the default token size
	// is too small for some exports.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		assembler.Consume(TokenizeLine(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, assembler.Stats(), fmt.Errorf("failed to read report: %w", err)
	}

	return assembler.Finish(), assembler.Stats(), nil
}
