// Command covermerge combines coverage profiles from separate test runs,
// typically the unit run and the -tags=integration run, into one profile.
//
//	covermerge unit.out integration.out > coverage.out
//
// Blocks that appear in several profiles are merged: counts are summed in
// count and atomic mode, and a block is covered in set mode if any profile
// covered it.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s profile.out [profile.out ...]\n", os.Args[0])
		os.Exit(1)
	}

	p := newProfile()
	for _, name := range os.Args[1:] {
		if err := p.addFile(name); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if err := p.write(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// profile accumulates blocks keyed by "file:start,end numStmts".
type profile struct {
	mode   string
	counts map[string]int64
}

func newProfile() *profile {
	return &profile{counts: make(map[string]int64)}
}

func (p *profile) addFile(name string) error {
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	if err := p.add(f); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (p *profile) add(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		if mode, ok := strings.CutPrefix(text, "mode:"); ok {
			mode = strings.TrimSpace(mode)
			if p.mode != "" && p.mode != mode {
				return fmt.Errorf("line %d: mode %q does not match %q", line, mode, p.mode)
			}
			p.mode = mode
			continue
		}

		sep := strings.LastIndexByte(text, ' ')
		if sep < 0 {
			return fmt.Errorf("line %d: malformed block %q", line, text)
		}
		count, err := strconv.ParseInt(text[sep+1:], 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: bad count: %w", line, err)
		}

		block := text[:sep]
		if p.mode == "set" {
			if count > 0 {
				p.counts[block] = 1
			} else if _, seen := p.counts[block]; !seen {
				p.counts[block] = 0
			}
			continue
		}
		p.counts[block] += count
	}
	return scanner.Err()
}

func (p *profile) write(w io.Writer) error {
	mode := p.mode
	if mode == "" {
		mode = "set"
	}

	blocks := make([]string, 0, len(p.counts))
	for b := range p.counts {
		blocks = append(blocks, b)
	}
	sort.Strings(blocks)

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "mode: %s\n", mode)
	for _, b := range blocks {
		fmt.Fprintf(bw, "%s %d\n", b, p.counts[b])
	}
	return bw.Flush()
}
