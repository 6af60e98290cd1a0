/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebook/panu/panu/stats"
)

var statsURL string

func init() {
	RootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVarP(&statsURL, "url", "u", "http://localhost:8972", "base URL of a running panud's JSON stats server")
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Fetch and print counters from a running panud",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()

		counters, err := stats.FetchCounters(statsURL)
		if err != nil {
			log.Fatalf("panud: fetching counters: %v", err)
		}

		names := make([]string, 0, len(counters))
		for k := range counters {
			names = append(names, k)
		}
		sort.Strings(names)

		table := tablewriter.NewTable(os.Stdout, tablewriter.WithMaxWidth(60))
		table.Header([]string{"counter", "value"})
		for _, name := range names {
			table.Append([]string{name, fmt.Sprintf("%d", counters[name])})
		}
		table.Render()
	},
}
