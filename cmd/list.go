package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/pktdash/pkg/gateway"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List available resources",
	Long:    `List capture interfaces and recorded capture tables.`,
	GroupID: "info",
}

var listInterfacesCmd = &cobra.Command{
	Use:     "interfaces",
	Short:   "List available network interfaces",
	Long:    `Display a list of network interfaces available for packet capture.`,
	Example: `  pktdash list interfaces`,
	Aliases: []string{"ifaces", "if"},
	Args:    cobra.NoArgs,
	RunE:    runListInterfaces,
}

var listTablesCmd = &cobra.Command{
	Use:     "tables",
	Short:   "List recorded capture tables",
	Long:    `Display the packet_data_* tables, oldest first.`,
	Example: `  pktdash list tables`,
	Args:    cobra.NoArgs,
	RunE:    runListTables,
}

func init() {
	listCmd.AddCommand(listInterfacesCmd)
	listCmd.AddCommand(listTablesCmd)
}

// runListInterfaces lists available network interfaces
func runListInterfaces(cmd *cobra.Command, args []string) error {
	gw, closeFn, err := openGateway(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	payload, err := call(cmd.Context(), gw, gateway.ListInterfaces, gateway.Params{})
	if err != nil {
		return fmt.Errorf("error listing interfaces: %w", err)
	}
	ifaces, perr := gateway.DecodeInterfaces(payload)
	if perr != nil {
		return perr
	}

	fmt.Println("Available network interfaces:")
	fmt.Println(strings.Repeat("-", 60))

	for i, iface := range ifaces {
		fmt.Printf("%d. %s\n", i+1, iface.Name)
		if iface.Description != "" {
			fmt.Printf("   Description: %s\n", iface.Description)
		}
		for _, addr := range iface.Addresses {
			fmt.Printf("   Address: %s\n", addr)
		}
		fmt.Println()
	}

	return nil
}

// runListTables lists the capture tables
func runListTables(cmd *cobra.Command, args []string) error {
	gw, closeFn, err := openGateway(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	payload, err := call(cmd.Context(), gw, gateway.ListTableNames, gateway.Params{})
	if err != nil {
		return fmt.Errorf("error listing tables: %w", err)
	}
	names, perr := gateway.DecodeStrings(payload)
	if perr != nil {
		return perr
	}
	if len(names) == 0 {
		fmt.Println("No capture tables yet. Run 'pktdash capture' or 'pktdash import' first.")
		return nil
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}
