/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/tieubaoca/embedding-be/utils"
)

// genTokenCmd represents the genToken command
var genTokenCmd = &cobra.Command{
	Use:   "gen-token",
	Short: "Generate an admin JWT for the upload endpoints",
	Long: `Generates a bearer token signed with JWT_SECRET_ADMIN for use
against the admin API routes.`,
	Run: func(cmd *cobra.Command, args []string) {
		id, _ := cmd.Flags().GetString("id")
		username, _ := cmd.Flags().GetString("username")

		token, err := utils.GenerateAdminToken(id, username)
		if err != nil {
			log.Fatalf("Failed to generate token: %v", err)
		}
		fmt.Println(token)
	},
}

func init() {
	rootCmd.AddCommand(genTokenCmd)

	genTokenCmd.Flags().String("id", "admin", "Subject id embedded in the token")
	genTokenCmd.Flags().String("username", "admin", "Username embedded in the token")
}
