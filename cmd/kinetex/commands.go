package main

import (
	"github.com/spf13/cobra"

	"github.com/njchilds90/kinetex"
)

func (a *app) singleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "single NAME",
		Short: "Render one parameter, variable, reaction or derived quantity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withModel(func(_ *kinetex.Model, c *kinetex.Composer, opts []kinetex.Option) error {
				text, err := c.Single(args[0], opts...)
				if err != nil {
					return err
				}
				return a.emit(text)
			})
		},
	}
}

func (a *app) odeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ode VARIABLE",
		Short: "Render the differential equation of one variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withModel(func(_ *kinetex.Model, c *kinetex.Composer, opts []kinetex.Option) error {
				text, err := c.SingleODE(args[0], opts...)
				if err != nil {
					return err
				}
				return a.emit(text)
			})
		},
	}
}

type collection func(*kinetex.Composer, ...kinetex.Option) (string, error)

func (a *app) collectionCmd(use, short string, render collection) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withModel(func(_ *kinetex.Model, c *kinetex.Composer, opts []kinetex.Option) error {
				text, err := render(c, opts...)
				if err != nil {
					return err
				}
				return a.emit(text)
			})
		},
	}
}

func (a *app) customCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "custom NAME...",
		Short: "Render the named entities in the given order",
		Long: `Render the named entities in the given order. Reactions and derived
quantities render as equations, variables as their symbol and parameters as
an identity. Any unknown name aborts the command.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withModel(func(_ *kinetex.Model, c *kinetex.Composer, opts []kinetex.Option) error {
				text, err := c.Custom(args, opts...)
				if err != nil {
					return err
				}
				return a.emit(text)
			})
		},
	}
}

func (a *app) allCmd() *cobra.Command {
	var combine bool
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Render the ODE system, reactions and derived quantities",
		Long: `Render the ODE system, reactions and derived quantities.

Printed output is always combined. With --out the sections go to
<stem>_ODEs.txt, <stem>_reactions.txt and <stem>_derived.txt unless
--combine is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withModel(func(_ *kinetex.Model, c *kinetex.Composer, opts []kinetex.Option) error {
				return a.renderAll(c, opts, combine)
			})
		},
	}
	cmd.Flags().BoolVar(&combine, "combine", false, "write one document with section headers")
	return cmd
}

func (a *app) renderAll(c *kinetex.Composer, opts []kinetex.Option, combine bool) error {
	s, err := c.All(opts...)
	if err != nil {
		return err
	}
	if a.outPath == "" {
		return a.emit(s.Combined())
	}
	return kinetex.PersistSections(a.writer(), s, a.outPath, combine)
}
