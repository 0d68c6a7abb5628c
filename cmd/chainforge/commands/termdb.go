/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: termdb.go
Description: Term database command implementations. Imports a directory of assertion
CSVs into a SQLite term database and summarises an existing database.
*/

package commands

import (
	"fmt"
	"time"

	"github.com/kleascm/chainforge/pkg/resources"
	"github.com/kleascm/chainforge/pkg/termdb"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunTermDBImport imports assertion CSVs into SQLite
func RunTermDBImport(cmd *cobra.Command, args []string) error {
	printBanner("🗄️ Chainforge - Importing Term Database")

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.GetLogger()

	csvDir := viper.GetString("termdb.csv_dir")
	if csvDir == "" {
		return fmt.Errorf("--csv-dir is required")
	}
	if cfg.TermDB.Path == "" {
		return fmt.Errorf("--db is required")
	}

	relations, err := resources.LoadRelationsCSV(cfg.Resources.RelationsFile)
	if err != nil && cfg.TermDB.RelationMapFile == "" {
		return fmt.Errorf("a relation map or relations file is required: %w", err)
	}
	mapping, err := relationMap(cfg, relations)
	if err != nil {
		return err
	}

	source, err := termdb.LoadCSVDir(csvDir, mapping, log)
	if err != nil {
		return err
	}

	store, err := termdb.OpenSQLiteStore(cfg.TermDB.Path, log)
	if err != nil {
		return err
	}
	defer closeAll(log, store.Close)

	start := time.Now()
	imported, err := store.Import(cmd.Context(), source)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"db":       cfg.TermDB.Path,
		"read":     source.Size(),
		"imported": imported,
		"duration": time.Since(start),
	}).Info("Term database imported")

	fmt.Printf("✅ Imported %d new assertions (%d read) into %s\n", imported, source.Size(), cfg.TermDB.Path)
	return nil
}

// RunTermDBInfo prints the assertion count per relation type
func RunTermDBInfo(cmd *cobra.Command, args []string) error {
	printBanner("🗄️ Chainforge - Term Database Info")

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.GetLogger()

	store, err := termdb.OpenSQLiteStore(cfg.TermDB.Path, log)
	if err != nil {
		return err
	}
	defer closeAll(log, store.Close)

	types, err := store.RelationTypes(cmd.Context())
	if err != nil {
		return err
	}

	total := 0
	for _, rt := range types {
		assertions, err := store.Assertions(cmd.Context(), rt)
		if err != nil {
			return err
		}
		total += len(assertions)
		fmt.Printf("  %-24s %d\n", rt, len(assertions))
	}
	fmt.Printf("\n📊 %d assertions over %d relation types\n", total, len(types))
	return nil
}
