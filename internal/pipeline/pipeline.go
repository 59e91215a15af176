// Package pipeline wires the compilation stages front ends and drivers
// need in sequence: parse, lower to IR, eliminate dead blocks, and
// (for -riscv mode) print/reparse/generate assembly. Extracted out of
// cmd/sysyc so both the driver and its tests can invoke a single stage
// without duplicating the wiring.
package pipeline

import (
	"bytes"
	"fmt"

	"github.com/sysy-lang/sysyc/pkg/dce"
	"github.com/sysy-lang/sysyc/pkg/koopa"
	"github.com/sysy-lang/sysyc/pkg/koopagen"
	"github.com/sysy-lang/sysyc/pkg/koopaparse"
	"github.com/sysy-lang/sysyc/pkg/lexer"
	"github.com/sysy-lang/sysyc/pkg/parser"
	"github.com/sysy-lang/sysyc/pkg/riscv"
)

// EmitKoopa runs the front end (parse, lower, dead-block elimination) and
// returns the printed IR text.
func EmitKoopa(source string) (string, error) {
	p := parser.New(lexer.New(source))
	cu := p.ParseProgram()
	if len(p.Errors()) > 0 {
		return "", fmt.Errorf("parse error: %s", p.Errors()[0])
	}
	m, err := koopagen.EmitModule(cu)
	if err != nil {
		return "", err
	}
	m = dce.RunModule(m)
	var buf bytes.Buffer
	koopa.NewPrinter(&buf).PrintModule(m)
	return buf.String(), nil
}

// EmitRISCV runs the front end, then re-parses the printed IR into raw
// form and generates RV32 assembly, mirroring the original toolchain's
// EmitKoopa()-then-deal_koopa() seam between IR generation and codegen.
func EmitRISCV(source string) (string, error) {
	koopaText, err := EmitKoopa(source)
	if err != nil {
		return "", err
	}
	raw, err := koopaparse.Parse(koopaText)
	if err != nil {
		return "", err
	}
	asmProg := riscv.Generate(raw)
	var buf bytes.Buffer
	riscv.NewPrinter(&buf).PrintProgram(asmProg)
	return buf.String(), nil
}
