package staging

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Record is one parsed FASTA entry.
type Record struct {
	ID          string
	Description string
	Seq         string
}

// sequence alphabet: IUPAC nucleotides and amino acids plus gap/stop marks
func isSequenceByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z':
		return true
	case b == '-' || b == '*' || b == '.':
		return true
	}
	return false
}

// ParseFasta reads every record of r. Blank lines are skipped; anything
// before the first header, or a sequence line outside the alphabet, is an error.
func ParseFasta(r io.Reader) ([]Record, error) {
	var (
		records []Record
		seq     strings.Builder
		current *Record
		lineNo  int
	)

	flush := func() {
		if current != nil {
			current.Seq = seq.String()
			records = append(records, *current)
		}
		seq.Reset()
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lineNo++
		line := bytes.TrimRight(sc.Bytes(), "\r \t")
		if len(line) == 0 {
			continue
		}

		if line[0] == '>' {
			flush()
			header := strings.TrimSpace(string(line[1:]))
			id, desc, _ := strings.Cut(header, " ")
			if id == "" {
				return nil, fmt.Errorf("line %d: empty sequence name", lineNo)
			}
			current = &Record{ID: id, Description: strings.TrimSpace(desc)}
			continue
		}

		if current == nil {
			return nil, fmt.Errorf("line %d: expected '>' at the start of a record", lineNo)
		}
		for i, b := range line {
			if !isSequenceByte(b) {
				return nil, fmt.Errorf("line %d: unexpected character %q at column %d", lineNo, b, i+1)
			}
		}
		seq.Write(line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()

	return records, nil
}

// FormatFasta renders records back to text, one sequence line each.
func FormatFasta(records []Record) string {
	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteByte('>')
		b.WriteString(r.ID)
		if r.Description != "" {
			b.WriteByte(' ')
			b.WriteString(r.Description)
		}
		b.WriteByte('\n')
		b.WriteString(r.Seq)
	}
	return b.String()
}
