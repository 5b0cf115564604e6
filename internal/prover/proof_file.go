package prover

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ProofFilePath returns the proof file that belongs to source: the same
// path with its extension replaced by .proof.
func ProofFilePath(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + ".proof"
}

// ProofFileContent renders a proof file for module.
func ProofFileContent(module string, now time.Time, body string) string {
	return fmt.Sprintf("Proofs for %s generated %s\n\n%s\n", module, now.Format(time.RFC1123), body)
}

// WriteProofFile writes a proof file for module to path. The content goes to
// a temporary file in the same directory first, so readers never observe a
// partial proof file.
func WriteProofFile(path, module string, now time.Time, body string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".proof-*")
	if err != nil {
		return fmt.Errorf("error creating temp proof file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("error setting proof file mode: %w", err)
	}
	if _, err := tmp.WriteString(ProofFileContent(module, now, body)); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing proof file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing proof file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("error renaming proof file: %w", err)
	}
	return nil
}
