package main

import (
	"flag"
	"io"
	"io/ioutil"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"lukechampine.com/flagg"

	"github.com/mnbbrown/dctdm"
)

func main() {
	log.SetFlags(0)

	flagg.Root.Usage = flagg.SimpleUsage(flagg.Root, `Usage: dctdm [command] [args]

Commands:
    dctdm hide in.jpg [FILE] [out.jpg]
    dctdm reveal in.jpg [FILE]
`)
	cmdHide := flagg.New("hide", `Usage:
    dctdm hide [flags] in.jpg [FILE] [out.jpg]
      Hide FILE (or stdin) in in.jpg, writing the result to out.jpg (or stdout)
`)
	delta := cmdHide.Int("delta", 10, "DCTDM step size (delta)")
	pairs := cmdHide.Int("pairs", 8, "AC positions used per luma block (pairs_per_block)")
	component := cmdHide.Uint("component", 1, "target component id")
	skipZero := cmdHide.Bool("skip-zero-pairs", false, "skip AC pairs where both coefficients are zero")
	pass := cmdHide.String("pass", "", "passphrase to encrypt the payload with (default: none)")
	verbose := cmdHide.Bool("v", false, "print progress to stderr")

	cmdReveal := flagg.New("reveal", `Usage:
    dctdm reveal [flags] in.jpg [FILE]
      Write the hidden contents of in.jpg to FILE (or stdout)
`)
	rDelta := cmdReveal.Int("delta", 10, "DCTDM step size (delta), must match the value used to hide")
	rPairs := cmdReveal.Int("pairs", 8, "AC positions used per luma block, must match the value used to hide")
	rComponent := cmdReveal.Uint("component", 1, "target component id, must match the value used to hide")
	rSkipZero := cmdReveal.Bool("skip-zero-pairs", false, "must match the value used to hide")
	rPass := cmdReveal.String("pass", "", "passphrase used to encrypt the payload (default: none)")
	rVerbose := cmdReveal.Bool("v", false, "print progress to stderr")

	cmd := flagg.Parse(flagg.Tree{
		Cmd: flagg.Root,
		Sub: []flagg.Tree{
			{Cmd: cmdHide},
			{Cmd: cmdReveal},
		},
	})

	switch cmd {
	case cmdHide:
		runHide(cmd, *delta, *pairs, uint8(*component), *skipZero, *pass, *verbose)
	case cmdReveal:
		runReveal(cmd, *rDelta, *rPairs, uint8(*rComponent), *rSkipZero, *rPass, *rVerbose)
	default:
		flagg.Root.Usage()
	}
}

func configFrom(delta, pairs int, component uint8, skipZero bool) dctdm.Config {
	return dctdm.Config{
		Delta:         delta,
		PairsPerBlock: pairs,
		Component:     component,
		SkipZeroPairs: skipZero,
	}
}

func transformFrom(pass string) dctdm.Transform {
	if pass == "" {
		return dctdm.Identity{}
	}
	return dctdm.Passphrase{Password: pass}
}

func logStep(verbose bool, id uuid.UUID, format string, args ...interface{}) {
	if !verbose {
		return
	}
	color.New(color.FgCyan).Fprintf(os.Stderr, "[%s] ", id.String()[:8])
	color.New(color.FgHiBlack).Fprintf(os.Stderr, format+"\n", args...)
}

func runHide(cmd *flag.FlagSet, delta, pairs int, component uint8, skipZero bool, pass string, verbose bool) {
	id := uuid.New()

	var in io.Reader
	var out io.Writer
	switch cmd.NArg() {
	case 1:
		in, out = os.Stdin, os.Stdout
	case 2:
		stat, _ := os.Stdin.Stat()
		haveStdin := (stat.Mode() & os.ModeCharDevice) == 0
		if haveStdin {
			fout, err := os.Create(cmd.Arg(1))
			if err != nil {
				log.Fatalln("could not create output file:", err)
			}
			defer fout.Close()
			in, out = os.Stdin, fout
		} else {
			fin, err := os.Open(cmd.Arg(1))
			if err != nil {
				log.Fatalln("could not open file:", err)
			}
			defer fin.Close()
			in, out = fin, os.Stdout
		}
	case 3:
		fin, err := os.Open(cmd.Arg(1))
		if err != nil {
			log.Fatalln("could not open file:", err)
		}
		defer fin.Close()
		fout, err := os.Create(cmd.Arg(2))
		if err != nil {
			log.Fatalln("could not create output file:", err)
		}
		defer fout.Close()
		in, out = fin, fout
	default:
		cmd.Usage()
		return
	}

	injpg, err := os.Open(cmd.Arg(0))
	if err != nil {
		log.Fatalln("could not open jpeg:", err)
	}
	defer injpg.Close()

	payload, err := ioutil.ReadAll(in)
	if err != nil {
		log.Fatalln("could not read payload:", err)
	}
	logStep(verbose, id, "read %d payload bytes", len(payload))

	cfg := configFrom(delta, pairs, component, skipZero)
	if err := cfg.Validate(); err != nil {
		log.Fatalln("invalid configuration:", err)
	}

	if err := dctdm.Hide(out, injpg, payload, cfg, transformFrom(pass), nil); err != nil {
		log.Fatalln("could not hide payload:", err)
	}
	logStep(verbose, id, "wrote stego jpeg")
}

func runReveal(cmd *flag.FlagSet, delta, pairs int, component uint8, skipZero bool, pass string, verbose bool) {
	id := uuid.New()

	var out io.Writer
	switch cmd.NArg() {
	case 1:
		out = os.Stdout
	case 2:
		fout, err := os.Create(cmd.Arg(1))
		if err != nil {
			log.Fatalln("could not create output file:", err)
		}
		defer fout.Close()
		out = fout
	default:
		cmd.Usage()
		return
	}

	injpg, err := os.Open(cmd.Arg(0))
	if err != nil {
		log.Fatalln("could not open file:", err)
	}
	defer injpg.Close()

	cfg := configFrom(delta, pairs, component, skipZero)
	if err := cfg.Validate(); err != nil {
		log.Fatalln("invalid configuration:", err)
	}

	payload, err := dctdm.Reveal(injpg, cfg, transformFrom(pass), nil)
	if err != nil {
		log.Fatalln("could not reveal payload:", err)
	}
	logStep(verbose, id, "recovered %d payload bytes", len(payload))

	if _, err := out.Write(payload); err != nil {
		log.Fatalln("could not write payload:", err)
	}
}
