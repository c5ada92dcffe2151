package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ammEngine/internal/amm"
	"ammEngine/internal/authority"
	"ammEngine/internal/config"
	"ammEngine/internal/runner"
)

func newDeriveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Print the pool and reserve authorities for an asset pair",
		RunE:  runDerive,
	}
	cmd.Flags().String("program-id", config.DefaultProgramID, "program id the authorities derive under")
	cmd.Flags().String("asset-a", "", "first asset id")
	cmd.Flags().String("asset-b", "", "second asset id")
	return cmd
}

func runDerive(cmd *cobra.Command, _ []string) error {
	ids := make(map[string]string, 3)
	for _, name := range []string{"program-id", "asset-a", "asset-b"} {
		value, _ := cmd.Flags().GetString(name)
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
		ids[name] = value
	}
	programID, err := runner.ParseHash(ids["program-id"])
	if err != nil {
		return fmt.Errorf("program-id: %w", err)
	}
	assetA, err := runner.ParseHash(ids["asset-a"])
	if err != nil {
		return fmt.Errorf("asset-a: %w", err)
	}
	assetB, err := runner.ParseHash(ids["asset-b"])
	if err != nil {
		return fmt.Errorf("asset-b: %w", err)
	}
	if assetA == assetB {
		return fmt.Errorf("asset-a and asset-b must differ")
	}

	pool, err := authority.PoolAuthority(programID, assetA, assetB)
	if err != nil {
		return err
	}
	reserveA, err := authority.ReserveAuthority(programID, assetA, pool.Address)
	if err != nil {
		return err
	}
	reserveB, err := authority.ReserveAuthority(programID, assetB, pool.Address)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "pool       %s nonce=%d\n", pool.Address.Hex(), pool.Nonce)
	fmt.Fprintf(out, "reserve_a  %s nonce=%d\n", reserveA.Address.Hex(), reserveA.Nonce)
	fmt.Fprintf(out, "reserve_b  %s nonce=%d\n", reserveB.Address.Hex(), reserveB.Nonce)
	return nil
}

func newQuoteCmd() *cobra.Command {
	quote := &cobra.Command{
		Use:   "quote",
		Short: "Price swaps and deposits against given reserves",
	}

	swap := &cobra.Command{
		Use:   "swap",
		Short: "Swap output for an input amount",
		RunE:  runQuoteSwap,
	}
	swap.Flags().Uint64("amount-in", 0, "input amount")
	swap.Flags().Uint64("reserve-in", 0, "reserve of the input asset")
	swap.Flags().Uint64("reserve-out", 0, "reserve of the output asset")

	deposit := &cobra.Command{
		Use:   "deposit",
		Short: "Shares minted for a deposit",
		RunE:  runQuoteDeposit,
	}
	deposit.Flags().Uint64("amount-a", 0, "deposit of asset A")
	deposit.Flags().Uint64("amount-b", 0, "deposit of asset B")
	deposit.Flags().Uint64("reserve-a", 0, "reserve of asset A")
	deposit.Flags().Uint64("reserve-b", 0, "reserve of asset B")
	deposit.Flags().Uint64("supply", 0, "outstanding share supply")
	deposit.Flags().Uint8("decimals", 6, "share asset decimals")

	quote.AddCommand(swap, deposit)
	return quote
}

func runQuoteSwap(cmd *cobra.Command, _ []string) error {
	amountIn, _ := cmd.Flags().GetUint64("amount-in")
	reserveIn, _ := cmd.Flags().GetUint64("reserve-in")
	reserveOut, _ := cmd.Flags().GetUint64("reserve-out")

	q, err := amm.AmountOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "amount_in=%d effective_in=%d fee=%d amount_out=%d\n", q.AmountIn, q.EffectiveIn, q.Fee, q.AmountOut)
	return nil
}

func runQuoteDeposit(cmd *cobra.Command, _ []string) error {
	amountA, _ := cmd.Flags().GetUint64("amount-a")
	amountB, _ := cmd.Flags().GetUint64("amount-b")
	reserveA, _ := cmd.Flags().GetUint64("reserve-a")
	reserveB, _ := cmd.Flags().GetUint64("reserve-b")
	supply, _ := cmd.Flags().GetUint64("supply")
	decimals, _ := cmd.Flags().GetUint8("decimals")

	if err := amm.CheckDepositRatio(amountA, amountB, reserveA, reserveB, supply); err != nil {
		return err
	}
	shares, err := amm.SharesForDeposit(amountA, amountB, reserveA, reserveB, supply, decimals)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "shares=%d\n", shares)
	return nil
}
