//go:build mage

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Stats prints Go lines of code per package directory, split into
// production and test lines, as one JSON record.
func Stats() error {
	type counts struct {
		Prod int `json:"prod"`
		Test int `json:"test"`
	}
	perPkg := map[string]*counts{}

	err := filepath.WalkDir(".", func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch {
			case path == "vendor", path == ".git", path == binaryDir, path == "magefiles",
				strings.HasPrefix(d.Name(), "_"):
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		n, err := countLines(path)
		if err != nil {
			return nil
		}
		dir := filepath.Dir(path)
		c, ok := perPkg[dir]
		if !ok {
			c = &counts{}
			perPkg[dir] = c
		}
		if strings.HasSuffix(path, "_test.go") {
			c.Test += n
		} else {
			c.Prod += n
		}
		return nil
	})
	if err != nil {
		return err
	}

	dirs := make([]string, 0, len(perPkg))
	for dir := range perPkg {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var prod, test int
	for _, dir := range dirs {
		c := perPkg[dir]
		fmt.Printf("%-24s %6d %6d\n", dir, c.Prod, c.Test)
		prod += c.Prod
		test += c.Test
	}

	line, err := json.Marshal(map[string]int{
		"go_loc_prod": prod,
		"go_loc_test": test,
		"go_loc":      prod + test,
	})
	if err != nil {
		return err
	}
	fmt.Println(string(line))
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
