package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "Inspect enrolled identities",
}

var identitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List employees and their enrollment status",
	RunE:  runIdentitiesList,
}

var identitiesCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count employees with a stored face embedding",
	RunE:  runIdentitiesCount,
}

var listRole string

func init() {
	identitiesListCmd.Flags().StringVar(&listRole, "role", "", "only list employees with this role")
	identitiesCmd.AddCommand(identitiesListCmd, identitiesCountCmd)
	rootCmd.AddCommand(identitiesCmd)
}

type identityRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Enrolled bool   `json:"enrolled"`
	Created  string `json:"created_at"`
}

func runIdentitiesList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	employees, err := db.ListEmployees(ctx)
	if err != nil {
		return err
	}

	rows := make([]identityRow, 0, len(employees))
	for _, e := range employees {
		if listRole != "" && string(e.Role) != listRole {
			continue
		}
		rows = append(rows, identityRow{
			ID:       e.ID.String(),
			Name:     e.Name + " " + e.FamilyName,
			Email:    e.Email,
			Role:     string(e.Role),
			Enrolled: e.HasFace(),
			Created:  e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tFACE\tCREATED")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n", r.ID, r.Name, r.Email, r.Role, r.Enrolled, r.Created)
	}
	return w.Flush()
}

func runIdentitiesCount(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	enrolled, err := db.CountEnrolled(ctx)
	if err != nil {
		return err
	}
	employees, err := db.ListEmployees(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]int{
			"employees": len(employees),
			"enrolled":  enrolled,
		})
	}
	fmt.Printf("%d employees, %d with an enrolled face\n", len(employees), enrolled)
	return nil
}
