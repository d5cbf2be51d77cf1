// Package stim reads and writes transaction trace files and replays them
// through a simulated link.
//
// A trace file is line oriented. Each record is a group of hex fields
// joined by underscores: the command word, then, unless the command is
// command-only, the destination and source addresses, then, for commands
// that carry data, the payload. An extra trailing field is the control
// byte: bit 0 marks the record valid, bits 7:1 give the delay in cycles
// before the transaction is issued. Text after // is a comment; blank
// lines are ignored.
package stim

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/TomHuangsrc/umi/umi"
)

// A Record is one traced transaction.
type Record struct {
	Cmd     umi.Command
	DstAddr uint64
	SrcAddr uint64
	Data    []byte

	Valid bool
	Delay int
}

// ReadTrace parses all records from r.
func ReadTrace(r io.Reader) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := scanner.Text()
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		rec, err := parseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func parseRecord(line string) (Record, error) {
	fields := strings.Split(line, "_")

	raw, err := strconv.ParseUint(fields[0], 16, 32)
	if err != nil {
		return Record{}, fmt.Errorf("bad command field %q: %w",
			fields[0], err)
	}

	rec := Record{
		Cmd:   umi.UnpackCommand(uint32(raw)),
		Valid: true,
	}

	expected := 1
	opcode := rec.Cmd.Opcode
	if !opcode.IsCommandOnly() {
		expected = 3
		if opcode.HasData() {
			expected = 4
		}
	}

	if len(fields) < expected || len(fields) > expected+1 {
		return Record{}, fmt.Errorf(
			"%s record needs %d fields, got %d",
			opcode, expected, len(fields))
	}

	if expected >= 3 {
		rec.DstAddr, err = strconv.ParseUint(fields[1], 16, 64)
		if err != nil {
			return Record{}, fmt.Errorf("bad destination address: %w", err)
		}
		rec.SrcAddr, err = strconv.ParseUint(fields[2], 16, 64)
		if err != nil {
			return Record{}, fmt.Errorf("bad source address: %w", err)
		}
	}

	if expected == 4 {
		n := (int(rec.Cmd.Len) + 1) << rec.Cmd.Size
		rec.Data, err = parseHexBytes(fields[3], n)
		if err != nil {
			return Record{}, err
		}
	}

	if len(fields) == expected+1 {
		ctrl, err := strconv.ParseUint(fields[expected], 16, 8)
		if err != nil {
			return Record{}, fmt.Errorf("bad control field: %w", err)
		}
		rec.Valid = ctrl&1 != 0
		rec.Delay = int(ctrl >> 1)
	}

	return rec, nil
}

// parseHexBytes reads a hex number of up to n bytes into a little-endian
// byte slice of exactly n bytes. The written form is most significant
// digit first, matching how hardware dump tools print data words.
func parseHexBytes(field string, n int) ([]byte, error) {
	if len(field) > 2*n {
		return nil, fmt.Errorf(
			"data field has %d digits, payload is %d bytes",
			len(field), n)
	}

	padded := strings.Repeat("0", 2*n-len(field)) + field

	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b, err := strconv.ParseUint(padded[2*i:2*i+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("bad data field: %w", err)
		}
		out[n-1-i] = byte(b)
	}

	return out, nil
}

// WriteTrace writes the records in the trace file format.
func WriteTrace(w io.Writer, records []Record) error {
	for _, rec := range records {
		if err := writeRecord(w, rec); err != nil {
			return err
		}
	}
	return nil
}

func writeRecord(w io.Writer, rec Record) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%08x", rec.Cmd.Pack())

	opcode := rec.Cmd.Opcode
	if !opcode.IsCommandOnly() {
		fmt.Fprintf(&sb, "_%016x_%016x", rec.DstAddr, rec.SrcAddr)

		if opcode.HasData() {
			sb.WriteByte('_')
			for i := len(rec.Data) - 1; i >= 0; i-- {
				fmt.Fprintf(&sb, "%02x", rec.Data[i])
			}
		}
	}

	if !rec.Valid || rec.Delay != 0 {
		if rec.Delay > 127 || rec.Delay < 0 {
			return fmt.Errorf(
				"delay %d does not fit the 7-bit control field", rec.Delay)
		}

		ctrl := rec.Delay << 1
		if rec.Valid {
			ctrl |= 1
		}
		fmt.Fprintf(&sb, "_%02x", ctrl)
	}

	sb.WriteByte('\n')

	_, err := io.WriteString(w, sb.String())

	return err
}
