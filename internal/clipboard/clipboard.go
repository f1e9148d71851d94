// Package clipboard copies text to the system clipboard through the
// platform's copy tool, falling back to an OSC 52 terminal sequence.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/aymanbagabas/go-osc52/v2"
)

var ErrToolNotFound = errors.New("clipboard tool not found")

type Command struct {
	Path string
	Args []string
}

func SelectCommand(goos string, lookPath func(string) (string, error)) (Command, error) {
	type candidate struct {
		name string
		args []string
	}
	var candidates []candidate
	switch goos {
	case "darwin":
		candidates = []candidate{{name: "pbcopy"}}
	case "linux", "freebsd", "openbsd":
		candidates = []candidate{
			{name: "wl-copy"},
			{name: "xclip", args: []string{"-selection", "clipboard"}},
			{name: "xsel", args: []string{"--clipboard", "--input"}},
		}
	case "windows":
		candidates = []candidate{{name: "clip.exe"}}
	}
	for _, c := range candidates {
		if path, err := lookPath(c.name); err == nil {
			return Command{Path: path, Args: c.args}, nil
		}
	}
	return Command{}, ErrToolNotFound
}

// Copy places text on the clipboard and returns how it got there: the tool
// name, or "osc52" when no tool exists and the sequence went to term.
// A nil term disables the fallback.
func Copy(ctx context.Context, text string, term io.Writer) (string, error) {
	cmdDef, err := SelectCommand(runtime.GOOS, exec.LookPath)
	if errors.Is(err, ErrToolNotFound) && term != nil {
		if err := WriteOSC52(term, text); err != nil {
			return "", err
		}
		return "osc52", nil
	}
	if err != nil {
		return "", err
	}
	if err := run(ctx, cmdDef, text); err != nil {
		return "", err
	}
	return cmdDef.Path, nil
}

// WriteOSC52 emits text as an OSC 52 clipboard sequence, wrapped for tmux or
// screen when running inside one.
func WriteOSC52(w io.Writer, text string) error {
	seq := osc52.New(text)
	switch {
	case os.Getenv("TMUX") != "":
		seq = seq.Tmux()
	case os.Getenv("STY") != "":
		seq = seq.Screen()
	}
	if _, err := seq.WriteTo(w); err != nil {
		return fmt.Errorf("write osc52 sequence: %w", err)
	}
	return nil
}

func run(ctx context.Context, cmdDef Command, text string) error {
	cmd := exec.CommandContext(ctx, cmdDef.Path, cmdDef.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("clipboard stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start clipboard command: %w", err)
	}
	if _, err := io.WriteString(stdin, text); err != nil {
		_ = stdin.Close()
		_ = cmd.Wait()
		return fmt.Errorf("write clipboard data: %w", err)
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("clipboard command failed: %w", err)
	}
	return nil
}
