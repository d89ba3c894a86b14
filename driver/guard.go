package driver

import (
	"fmt"
	"io"
	"strings"

	"github.com/gofrs/uuid"
)

// guardMacro returns a fresh preprocessor macro name on every call (one per
// generated header), replacing the original tool's clock-seconds/nanoseconds
// scheme (which left a documented collision window between two headers
// generated in the same nanosecond) with a random v4 UUID.
func guardMacro() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return "IHEADERS_GUARD_" + strings.ReplaceAll(id.String(), "-", "_"), nil
}

// writeGuardPrologue emits the #ifndef/#define pair opening an include
// guard, returning the macro name so writeGuardEpilogue can close it.
func writeGuardPrologue(w io.Writer) (string, error) {
	macro, err := guardMacro()
	if err != nil {
		return "", err
	}
	if _, err := fmt.Fprintf(w, "#ifndef %s\n#define %s\n", macro, macro); err != nil {
		return "", err
	}
	return macro, nil
}

func writeGuardEpilogue(w io.Writer, macro string) error {
	_, err := fmt.Fprintf(w, "#endif /* %s */\n", macro)
	return err
}
