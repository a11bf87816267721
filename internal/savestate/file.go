package savestate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/micro-nova/avdecc-fastconnect/internal/models"
)

// SplitPath separates a configured save-state path at its first comma.
// The file part names the file on disk; the override part is returned for
// callers that want to log it but is otherwise unused.
func SplitPath(path string) (file, override string) {
	if i := strings.IndexByte(path, ','); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}

// Load reads saved states from the file named by path. A missing file is
// not an error and yields an empty list. At most MaxSavedStates records
// are read; anything after them is ignored.
func Load(path string) ([]models.SavedState, error) {
	file, _ := SplitPath(path)

	f, err := os.Open(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.SavedState{}, nil
		}
		return nil, fmt.Errorf("%w: %s: %w", models.ErrLoad, file, err)
	}
	defer f.Close()

	states, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return states, nil
}

// Decode parses the line-oriented saved-state format:
//
//	<friendly name>
//	<talker entity id>
//	<controller entity id>
//	<blank line>
//
// Blank lines before a name are skipped. End of input while looking for a
// name ends the list; end of input anywhere else is an error.
func Decode(r io.Reader) ([]models.SavedState, error) {
	br := bufio.NewReader(r)
	states := make([]models.SavedState, 0, MaxSavedStates)

	for len(states) < MaxSavedStates {
		var st models.SavedState

		for {
			line, err := readLine(br)
			if err == io.EOF {
				return states, nil
			}
			if err != nil {
				return nil, fmt.Errorf("%w: reading friendly name: %w", models.ErrLoad, err)
			}
			if line == "" {
				continue
			}
			st.FriendlyName = models.TruncateFriendlyName(line)
			break
		}

		var err error
		if st.TalkerEntityID, err = readEntityID(br, "talker"); err != nil {
			return nil, err
		}
		if st.ControllerEntityID, err = readEntityID(br, "controller"); err != nil {
			return nil, err
		}

		slog.Debug("savestate: decoded saved state",
			"index", len(states),
			"listener", st.FriendlyName,
			"talker", st.TalkerEntityID,
			"controller", st.ControllerEntityID,
		)
		states = append(states, st)
	}
	return states, nil
}

func readEntityID(br *bufio.Reader, which string) (models.EntityID, error) {
	line, err := readLine(br)
	if err == io.EOF {
		return models.EntityID{}, fmt.Errorf("%w: %s entity id: %w", models.ErrLoad, which, io.ErrUnexpectedEOF)
	}
	if err != nil {
		return models.EntityID{}, fmt.Errorf("%w: %s entity id: %w", models.ErrLoad, which, err)
	}
	id, err := models.ParseEntityID(line)
	if err != nil {
		return models.EntityID{}, fmt.Errorf("%w: %s entity id: %w", models.ErrLoad, which, err)
	}
	return id, nil
}

// readLine returns the next line with trailing CR and LF removed. io.EOF is
// returned only when no bytes remain; a final line without a newline is
// returned normally.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Encode writes states in the format read by Decode. Every record,
// including the last, is followed by a blank line.
func Encode(w io.Writer, states []models.SavedState) error {
	bw := bufio.NewWriter(w)
	for _, st := range states {
		if _, err := fmt.Fprintf(bw, "%s\n%s\n%s\n\n",
			st.FriendlyName, st.TalkerEntityID, st.ControllerEntityID); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Persist truncates the file named by path and rewrites it with states.
// The write is not atomic: a failure part way leaves a short file behind.
func Persist(path string, states []models.SavedState) error {
	file, _ := SplitPath(path)

	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", models.ErrIO, file, err)
	}
	if err := Encode(f, states); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %w", models.ErrIO, file, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", models.ErrIO, file, err)
	}
	return nil
}
