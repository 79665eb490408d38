package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"motordc/internal/motor"
)

const promptText = "duty cycle [%]: "

// runPrompt reads one duty command per line from in until EOF or ctx is
// done. Bad input is reported and the prompt continues.
func runPrompt(ctx context.Context, in io.Reader, out io.Writer, drv *motor.Driver) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		fmt.Fprint(out, promptText)
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			handleLine(out, drv, line)
		}
	}
}

func handleLine(out io.Writer, drv *motor.Driver, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	v, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Fprintf(out, "invalid duty %q\n", line)
		return
	}
	if err := drv.SetDutyCycle(v); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	st := drv.State()
	fmt.Fprintf(out, "pwm=%d dir=%d\n", st.PWM, st.Direction)
}
