package host

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// Page runs text through the user's $PAGER (default "less -R", so
// fatih/color's ANSI codes survive) over a pty, the way
// loop/server/sshserver.go's handlePTYSession drives an interactive
// subprocess. If stdout isn't a terminal, or the pager can't start, it
// falls back to printing text directly.
func Page(text string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Print(text)
		return nil
	}

	pagerCmd := os.Getenv("PAGER")
	if pagerCmd == "" {
		pagerCmd = "less"
	}
	cmd := exec.Command(pagerCmd, "-R")
	cmd.Stdin = nil

	f, err := pty.Start(cmd)
	if err != nil {
		fmt.Print(text)
		return nil
	}
	defer f.Close()

	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		pty.Setsize(f, &pty.Winsize{Rows: uint16(h), Cols: uint16(w)})
	}

	go func() {
		io.WriteString(f, text)
	}()
	go io.Copy(f, os.Stdin)
	io.Copy(os.Stdout, f)

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("host: pager exited with error: %w", err)
	}
	return nil
}
