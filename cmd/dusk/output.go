package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/sandeepkv93/dusk/internal/delivery"
)

var (
	okColor    = color.New(color.FgGreen, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	errColor   = color.New(color.FgRed, color.Bold)
	dimColor   = color.New(color.Faint)
	titleColor = color.New(color.FgCyan, color.Bold)
)

// consoleToaster prints toasts for CLI invocations, which have no screen to
// hold them.
type consoleToaster struct {
	w io.Writer
}

func (c consoleToaster) Toast(title, body string, level delivery.ToastLevel) {
	switch level {
	case delivery.ToastWarning:
		warnColor.Fprintln(c.w, title)
	case delivery.ToastSuccess:
		okColor.Fprintln(c.w, title)
	default:
		titleColor.Fprintln(c.w, title)
	}
	if body != "" {
		fmt.Fprintln(c.w, "  "+body)
	}
}

func onOff(v bool) string {
	if v {
		return okColor.Sprint("on")
	}
	return dimColor.Sprint("off")
}
