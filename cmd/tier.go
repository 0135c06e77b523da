package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/anoixa/image-tiers/internal/tier"
	"github.com/anoixa/image-tiers/utils/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// tierCmd 等级策略管理
var tierCmd = &cobra.Command{
	Use:   "tier",
	Short: "Manage tier policies",
}

var tierListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tier policies",
	Run: func(cmd *cobra.Command, args []string) {
		container := mustContainer()
		defer container.Close()

		policies, err := container.Tiers.List(context.Background())
		if err != nil {
			logger.L.Fatal("failed to list tiers", zap.Error(err))
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tKEEP ORIGINAL\tLINKS\tRESOLUTIONS")
		for _, p := range policies {
			sizes := make([]string, 0, len(p.Resolutions))
			for _, r := range p.Resolutions {
				sizes = append(sizes, r.String())
			}
			fmt.Fprintf(w, "%d\t%s\t%t\t%t\t%s\n", p.ID, p.Name, p.KeepOriginal, p.CanGenerateLink, strings.Join(sizes, ","))
		}
		_ = w.Flush()
	},
}

var tierCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create or update a tier policy",
	Long: `Create a tier policy, or update it when the name already exists.
Missing resolutions are created on the fly.

Examples:
  image-tiers tier create --name Premium --keep-original --resolution 200x200 --resolution 400x400`,
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		keepOriginal, _ := cmd.Flags().GetBool("keep-original")
		canLink, _ := cmd.Flags().GetBool("link")
		sizes, _ := cmd.Flags().GetStringSlice("resolution")

		container := mustContainer()
		defer container.Close()

		def := tier.Definition{Name: name, KeepOriginal: keepOriginal, CanGenerateLink: canLink, Resolutions: sizes}
		if err := container.Tiers.Seed(context.Background(), []tier.Definition{def}); err != nil {
			logger.L.Fatal("failed to save tier", zap.String("name", name), zap.Error(err))
		}
		fmt.Printf("Tier %q saved\n", name)
	},
}

var tierSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load tier policies from a file, or the built-in defaults",
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")

		defs := tier.DefaultDefinitions
		if file != "" {
			loaded, err := tier.LoadDefinitions(file)
			if err != nil {
				logger.L.Fatal("failed to load tier file", zap.Error(err))
			}
			defs = loaded
		}

		container := mustContainer()
		defer container.Close()

		if err := container.Tiers.Seed(context.Background(), defs); err != nil {
			logger.L.Fatal("failed to seed tiers", zap.Error(err))
		}
		fmt.Printf("Seeded %d tiers\n", len(defs))
	},
}

var tierDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete an unused tier policy",
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")

		container := mustContainer()
		defer container.Close()

		ctx := context.Background()
		p, err := container.Tiers.GetByName(ctx, name)
		if err != nil {
			logger.L.Fatal("tier not found", zap.String("name", name), zap.Error(err))
		}
		if err := container.Tiers.Delete(ctx, p.ID); err != nil {
			logger.L.Fatal("failed to delete tier", zap.String("name", name), zap.Error(err))
		}
		fmt.Printf("Tier %q deleted\n", name)
	},
}

// resolutionCmd 分辨率管理
var resolutionCmd = &cobra.Command{
	Use:   "resolution",
	Short: "Manage thumbnail resolutions",
}

var resolutionAddCmd = &cobra.Command{
	Use:   "add WxH",
	Short: "Add a thumbnail resolution",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		width, height, err := tier.ParseSize(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		container := mustContainer()
		defer container.Close()

		res, err := container.Tiers.AddResolution(context.Background(), width, height)
		if err != nil {
			logger.L.Fatal("failed to add resolution", zap.Error(err))
		}
		fmt.Printf("Resolution %s added (id %d)\n", res.String(), res.ID)
	},
}

var resolutionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List thumbnail resolutions",
	Run: func(cmd *cobra.Command, args []string) {
		container := mustContainer()
		defer container.Close()

		list, err := container.Tiers.ListResolutions(context.Background())
		if err != nil {
			logger.L.Fatal("failed to list resolutions", zap.Error(err))
		}
		for _, r := range list {
			fmt.Printf("%d\t%s\n", r.ID, r.String())
		}
	},
}

func init() {
	rootCmd.AddCommand(tierCmd)
	tierCmd.AddCommand(tierListCmd, tierCreateCmd, tierSeedCmd, tierDeleteCmd)

	tierCreateCmd.Flags().String("name", "", "Tier name")
	tierCreateCmd.Flags().Bool("keep-original", false, "Keep the original upload")
	tierCreateCmd.Flags().Bool("link", false, "Allow generating temporary links")
	tierCreateCmd.Flags().StringSlice("resolution", nil, "Thumbnail resolution WxH, repeatable")
	_ = tierCreateCmd.MarkFlagRequired("name")

	tierSeedCmd.Flags().String("file", "", "Tier definition file (yaml, json or toml)")

	tierDeleteCmd.Flags().String("name", "", "Tier name")
	_ = tierDeleteCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(resolutionCmd)
	resolutionCmd.AddCommand(resolutionAddCmd, resolutionListCmd)
}
