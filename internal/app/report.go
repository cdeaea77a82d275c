package app

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/samvad-hq/easyxfer/pkg/easy"
)

const unknownFailure = "An unknown exception was caught"

// errorColor highlights diagnostics on a terminal; color turns itself off otherwise.
var errorColor = color.New(color.FgRed)

// Guard runs fn and reports whatever goes wrong on stderr: typed transfer errors,
// any other error, and finally panics. The demo programs always exit normally.
func (c *Client) Guard(fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.ErrorObj("transfer panicked", "panic", fmt.Sprint(r))
			errorColor.Fprintln(c.stderr, unknownFailure)
		}
	}()

	if err := fn(); err != nil {
		c.Report(err)
	}
}

// Report prints err on stderr and logs it with its easy.Error fields when present.
func (c *Client) Report(err error) {
	var xe *easy.Error
	if errors.As(err, &xe) {
		c.log.ErrorObj("transfer failed", "transfer_error", map[string]any{
			"kind":   xe.Kind.String(),
			"op":     xe.Op,
			"code":   int(xe.Code),
			"detail": xe.Detail,
		})
		errorColor.Fprintln(c.stderr, err)
		return
	}
	c.log.ErrorObj("demo failed", "error", err.Error())
	errorColor.Fprintln(c.stderr, err)
}
