// Command admin is the operator CLI: project and slot management against the
// store directly, without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/yacnet/signupd/internal/domain/project"
	"github.com/yacnet/signupd/internal/domain/slot"
	"github.com/yacnet/signupd/internal/sqlite"
)

const programName = "signupd-admin"

var dbPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Volunteer signup administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "signupd.db", "path to the database file")

	rootCmd.AddCommand(
		createProjectCommand(),
		createSlotCommand(),
		listProjectsCommand(),
		listOpenSlotsCommand(),
		purgeSlotCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}

func openServices() (*project.Service, *slot.Service, func(), error) {
	db, err := sqlite.New(dbPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	projectsTable := sqlite.NewTableStore(db, "Projects")
	slotsTable := sqlite.NewTableStore(db, "Slots")
	volunteersTable := sqlite.NewTableStore(db, "SlotVolunteers")

	projectSvc := project.NewService(projectsTable, slotsTable, logger)
	slotSvc := slot.NewService(slotsTable, volunteersTable, logger)
	return projectSvc, slotSvc, func() { db.Close() }, nil
}

func createProjectCommand() *cobra.Command {
	var req project.CreateRequest
	cmd := &cobra.Command{
		Use:   "create-project",
		Short: "Publish a new project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectSvc, _, closeDB, err := openServices()
			if err != nil {
				return err
			}
			defer closeDB()

			proj, err := projectSvc.Create(context.Background(), req)
			if err != nil {
				return err
			}
			fmt.Printf("created project %s (%s)\n", proj.ID, proj.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "project title")
	cmd.Flags().StringVar(&req.Description, "description", "", "project description")
	cmd.Flags().StringVar(&req.Category, "category", "", "project category (partition)")
	cmd.Flags().StringVar(&req.Contact.Email, "contact-email", "", "contact email")
	cmd.Flags().StringVar(&req.Contact.FirstName, "contact-first-name", "", "contact first name")
	cmd.Flags().StringVar(&req.Contact.LastName, "contact-last-name", "", "contact last name")
	cmd.Flags().StringVar(&req.Contact.Phone, "contact-phone", "", "contact phone")
	return cmd
}

func createSlotCommand() *cobra.Command {
	var projectID string
	var req slot.CreateRequest
	cmd := &cobra.Command{
		Use:   "create-slot",
		Short: "Add a volunteer slot to a project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, slotSvc, closeDB, err := openServices()
			if err != nil {
				return err
			}
			defer closeDB()

			created, err := slotSvc.Create(context.Background(), projectID, req)
			if err != nil {
				return err
			}
			fmt.Printf("created slot %s (%s, capacity %d)\n", created.ID, created.Task, created.Capacity)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&req.Task, "task", "", "slot task")
	cmd.Flags().StringVar(&req.Date, "date", "", "slot date")
	cmd.Flags().StringVar(&req.Time, "time", "", "slot time")
	cmd.Flags().IntVar(&req.Capacity, "capacity", 1, "slot capacity")
	return cmd
}

func listProjectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-projects",
		Short: "List all projects with slot totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectSvc, _, closeDB, err := openServices()
			if err != nil {
				return err
			}
			defer closeDB()

			summaries, err := projectSvc.ListWithTotals(context.Background())
			if err != nil {
				return err
			}
			for _, s := range summaries {
				open := ""
				if s.Totals.HasOpenSlots {
					open = " [open slots]"
				}
				fmt.Printf("[%s] %s (%s) - %d/%d filled%s\n",
					s.ID, s.Title, s.Category, s.Totals.TotalFilled, s.Totals.TotalCapacity, open)
			}
			return nil
		},
	}
}

func listOpenSlotsCommand() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "list-open-slots",
		Short: "List a project's slots still marked available",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, slotSvc, closeDB, err := openServices()
			if err != nil {
				return err
			}
			defer closeDB()

			slots, err := slotSvc.ListOpen(context.Background(), projectID)
			if err != nil {
				return err
			}
			if len(slots) == 0 {
				fmt.Println("No open slots for this project.")
				return nil
			}
			for _, sl := range slots {
				fmt.Printf("[%s] %s (%s %s) - %d of %d spots open\n",
					sl.ID, sl.Task, sl.Date, sl.Time, sl.SpotsRemaining, sl.Capacity)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	return cmd
}

func purgeSlotCommand() *cobra.Command {
	var projectID, slotID string
	cmd := &cobra.Command{
		Use:   "purge-slot",
		Short: "Delete a slot and all of its volunteer signup records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, slotSvc, closeDB, err := openServices()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := slotSvc.Purge(context.Background(), projectID, slotID); err != nil {
				return err
			}
			fmt.Printf("purged slot %s\n", slotID)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&slotID, "slot", "", "slot id")
	return cmd
}
