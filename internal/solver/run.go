package solver

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// HypoDDFileNames are substituted into hypoDD.inp's first 9
// non-comment lines, in order (spec §4.8).
var HypoDDFileNames = []string{
	"dt.cc", "dt.ct", "event.dat", "station.dat",
	"hypoDD.loc", "hypoDD.reloc", "hypoDD.sta", "hypoDD.res", "hypoDD.src",
}

// Ph2dtFileNames are substituted into ph2dt.inp's non-comment lines:
// the two inputs ph2dt reads plus the four outputs it writes, one of
// which (dt.ct) doubles as hypoDD's own catalog-derived input when the
// orchestrator chooses to run ph2dt as a pre-pass instead of building
// dt.ct itself.
var Ph2dtFileNames = []string{
	"station.dat", "phase.dat",
	"station.sel", "event.sel", "event.dat", "dt.ct",
}

// RenderControlFile reads a control-file template and substitutes its
// first len(fileNames) non-comment lines with fileNames, in order. If
// the template's first line is "hypoDD_2" the substitution offset
// shifts by one (spec §4.8) — this quirk is specific to hypoDD's own
// control file but harmless to check unconditionally.
func RenderControlFile(templatePath string, fileNames []string) (string, error) {
	f, err := os.Open(templatePath)
	if err != nil {
		return "", fmt.Errorf("solver: opening control file template %s: %w", templatePath, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("solver: empty control file template %s", templatePath)
	}

	offset := 0
	if strings.TrimSpace(lines[0]) == "hypoDD_2" {
		offset = 1
	}

	substituted := 0
	for i := range lines {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "*") {
			continue // comment line, left untouched
		}
		idx := i - offset
		if idx < 0 || substituted >= len(fileNames) {
			continue
		}
		lines[i] = fileNames[substituted]
		substituted++
	}

	return strings.Join(lines, "\n") + "\n", nil
}

// Run invokes a solver-family binary (the relocation solver or
// ph2dt) with inpFile as its sole argument, from workDir, capturing
// combined stdout/stderr to a log file in workDir. A non-zero exit is
// logged but not treated as failure — the caller inspects its output
// files for the authoritative success signal (spec §4.8).
func Run(ctx context.Context, binary, workDir, inpFile, logName string) error {
	cmd := exec.CommandContext(ctx, binary, inpFile)
	cmd.Dir = workDir

	logPath := filepath.Join(workDir, logName)
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("solver: creating log file %s: %w", logPath, err)
	}
	defer logFile.Close()

	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Run(); err != nil {
		fmt.Fprintf(logFile, "\n[solver exited non-zero: %v]\n", err)
	}
	return nil
}

// RelocFileExists reports whether the solver produced a hypoDD.reloc
// file in workDir, the authoritative success signal (spec §4.8).
func RelocFileExists(workDir string) bool {
	_, err := os.Stat(filepath.Join(workDir, "hypoDD.reloc"))
	return err == nil
}
