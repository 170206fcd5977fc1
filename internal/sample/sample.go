// Package sample cuts deterministic subsets of line-delimited files, used to
// build the small fixture datasets.
package sample

import (
	"bufio"
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
)

const DefaultSeed = int64(20260224)

type Result struct {
	Lines int
	Kept  int
}

// Lines shuffles the non-blank lines of in with seed, keeps the first n
// (n <= 0 keeps all) and writes them to out in their original order.
func Lines(in, out string, n int, seed int64) (Result, error) {
	lines, err := readLines(in)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", in, err)
	}
	keep := Pick(len(lines), n, seed)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return Result{}, err
	}
	f, err := os.Create(out)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, i := range keep {
		if _, err := w.Write(lines[i]); err != nil {
			return Result{}, err
		}
		if err := w.WriteByte('\n'); err != nil {
			return Result{}, err
		}
	}
	if err := w.Flush(); err != nil {
		return Result{}, err
	}
	if err := f.Close(); err != nil {
		return Result{}, err
	}
	return Result{Lines: len(lines), Kept: len(keep)}, nil
}

// Pick returns n indexes out of total chosen by a seeded shuffle, ascending.
func Pick(total, n int, seed int64) []int {
	idx := make([]int, total)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	if n > 0 && n < len(idx) {
		idx = idx[:n]
	}
	sort.Ints(idx)
	return idx
}

func readLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	var out [][]byte
	for sc.Scan() {
		line := bytes.TrimRight(sc.Bytes(), "\r")
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		out = append(out, append([]byte(nil), line...))
	}
	return out, sc.Err()
}
