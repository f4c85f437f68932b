package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/skillbench/skillbench/pkg/agents"
	"github.com/skillbench/skillbench/pkg/judge"
	"github.com/skillbench/skillbench/pkg/presenter"
	"github.com/skillbench/skillbench/pkg/scenario"
	"github.com/skillbench/skillbench/pkg/skills"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List scenarios, skills, agents, or domains",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var listScenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List available scenarios",
	Run: func(cmd *cobra.Command, args []string) {
		loader, err := scenario.NewLoader()
		if err != nil {
			presenter.Error(err, "Failed to initialize scenario loader")
			os.Exit(1)
		}
		names, err := loader.List()
		if err != nil {
			presenter.Error(err, "Failed to list scenarios")
			os.Exit(1)
		}
		for _, name := range names {
			fmt.Println(name)
		}
	},
}

var listSkillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List discovered skills",
	Run: func(cmd *cobra.Command, args []string) {
		discovery, err := skills.NewDiscovery()
		if err != nil {
			presenter.Error(err, "Failed to initialize skill discovery")
			os.Exit(1)
		}
		available, err := discovery.DiscoverSkills()
		if err != nil {
			presenter.Error(err, "Failed to discover skills")
			os.Exit(1)
		}

		names := make([]string, 0, len(available))
		for name := range available {
			names = append(names, name)
		}
		sort.Strings(names)

		table := newMarkdownTable([]string{"Name", "Description"}, os.Stdout)
		for _, name := range names {
			_ = table.Append([]string{name, available[name].Description})
		}
		_ = table.Render()
	},
}

var listAgentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List agent definitions",
	Run: func(cmd *cobra.Command, args []string) {
		loader, err := agents.NewLoader()
		if err != nil {
			presenter.Error(err, "Failed to initialize agent loader")
			os.Exit(1)
		}
		all, err := loader.ListAgents(cmd.Context())
		if err != nil {
			presenter.Error(err, "Failed to list agents")
			os.Exit(1)
		}

		table := newMarkdownTable([]string{"Name", "Description", "Skills"}, os.Stdout)
		for _, agent := range all {
			_ = table.Append([]string{
				agent.Metadata.Name,
				agent.Metadata.Description,
				fmt.Sprintf("%v", agent.Metadata.Skills),
			})
		}
		_ = table.Render()
	},
}

var listDomainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List judge domains",
	Run: func(cmd *cobra.Command, args []string) {
		registry, err := judge.NewRegistry()
		if err != nil {
			presenter.Error(err, "Failed to initialize domain registry")
			os.Exit(1)
		}
		domains, err := registry.LoadAll()
		if err != nil {
			presenter.Error(err, "Failed to load domains")
			os.Exit(1)
		}

		table := newMarkdownTable([]string{"Name", "Max Score", "Description"}, os.Stdout)
		for _, domain := range domains {
			_ = table.Append([]string{
				domain.Name,
				fmt.Sprintf("%d", domain.MaxScore),
				domain.Description,
			})
		}
		_ = table.Render()
	},
}

func init() {
	listCmd.AddCommand(listScenariosCmd)
	listCmd.AddCommand(listSkillsCmd)
	listCmd.AddCommand(listAgentsCmd)
	listCmd.AddCommand(listDomainsCmd)
}
