package main

// Copyright (c) 2025 Colin McRae

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/predrag3141/RUGMAT/matfile"
	"github.com/predrag3141/RUGMAT/matops"
)

const version = "v1.0.0"

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     "rugmat",
		Short:   "Inspect and analyze RUGMAT matrix files",
		Version: version,
		Long: `rugmat works with checksummed arbitrary-precision matrix files.

Every entry of a RUGMAT file is a bit-exact big.Float snapshot, so a
round trip through inspect/verify never loses precision.`,
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print dimensions, precision and norm summary",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}

	verifyCmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Validate the file checksum and framing",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerify,
	}

	condCmd := &cobra.Command{
		Use:   "cond <file>",
		Short: "Estimate the 2-norm condition number",
		Long: `Estimates the condition number with power and inverse power iteration.
With --auto the estimate is recomputed at doubling precisions until it
stabilizes or --max-bits is reached.`,
		Args: cobra.ExactArgs(1),
		RunE: runCond,
	}
	condCmd.Flags().Int("max-iters", 500, "Iteration budget per estimator")
	condCmd.Flags().Float64("tol", 1e-10, "Convergence tolerance")
	condCmd.Flags().Bool("auto", false, "Escalate precision until the estimate stabilizes")
	condCmd.Flags().Uint("max-bits", 4096, "Precision ceiling for --auto")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(condCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	m, err := matfile.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("file:       %s\n", args[0])
	fmt.Printf("dimensions: %d x %d\n", m.NumRows(), m.NumCols())
	fmt.Printf("precision:  %d bits\n", m.Prec())
	fmt.Printf("nonzeros:   %d of %d\n", m.L0Norm(), m.NumRows()*m.NumCols())
	fmt.Printf("norm-1:     %s\n", m.NormOne().Text('g', 12))
	fmt.Printf("norm-inf:   %s\n", m.NormInf().Text('g', 12))
	fmt.Printf("frobenius:  %s\n", m.FrobeniusNorm().Text('g', 12))
	fmt.Printf("max entry:  %s\n", m.MaxEntryNorm().Text('g', 12))
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	m, err := matfile.Load(args[0])
	switch {
	case errors.Is(err, matfile.ErrBadMagic):
		return fmt.Errorf("%s is not a RUGMAT file", args[0])
	case errors.Is(err, matfile.ErrUnsupportedVersion):
		return fmt.Errorf("%s uses a format version this build cannot read", args[0])
	case errors.Is(err, matfile.ErrChecksumMismatch):
		return fmt.Errorf("%s is corrupt: checksum mismatch", args[0])
	case err != nil:
		return err
	}

	log.Info().
		Str("file", args[0]).
		Int("rows", m.NumRows()).
		Int("cols", m.NumCols()).
		Uint("precision", m.Prec()).
		Msg("file verified")
	return nil
}

func runCond(cmd *cobra.Command, args []string) error {
	maxIters, err := cmd.Flags().GetInt("max-iters")
	if err != nil {
		return err
	}
	tol, err := cmd.Flags().GetFloat64("tol")
	if err != nil {
		return err
	}
	auto, err := cmd.Flags().GetBool("auto")
	if err != nil {
		return err
	}
	maxBits, err := cmd.Flags().GetUint("max-bits")
	if err != nil {
		return err
	}

	m, err := matfile.Load(args[0])
	if err != nil {
		return err
	}

	if auto {
		estimate, bits, err := matops.CondEstimateAuto(m, maxIters, tol, maxBits)
		if err != nil {
			return condError(err)
		}
		fmt.Printf("cond: %s (stable at %d bits)\n", estimate.Text('g', 12), bits)
		return nil
	}

	estimate, err := matops.CondEstimate(m, maxIters, tol)
	if err != nil {
		return condError(err)
	}
	fmt.Printf("cond: %s\n", estimate.Text('g', 12))

	required, err := matops.RequiredPrecisionForCond(uint(53), estimate)
	if err == nil {
		fmt.Printf("precision for float64-grade solves: %d bits\n", required)
	}
	return nil
}

// condError maps estimator outcomes to operator-facing messages.
func condError(err error) error {
	switch {
	case errors.Is(err, matops.ErrSingularMatrix):
		return fmt.Errorf("matrix is singular or numerically rank deficient: %w", err)
	case errors.Is(err, matops.ErrNonSquare):
		return fmt.Errorf("condition estimation needs a square matrix: %w", err)
	default:
		return err
	}
}
