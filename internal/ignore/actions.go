package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/28jackiiee/video-scraping/internal/common"
	"github.com/28jackiiee/video-scraping/pkg/collect"
	"github.com/28jackiiee/video-scraping/pkg/db"
	"github.com/28jackiiee/video-scraping/pkg/ignorelist"
	"github.com/28jackiiee/video-scraping/pkg/inventory"
	"github.com/urfave/cli/v2"
)

// listName picks the list from --list, then --query, then the default list.
func listName(c *cli.Context) string {
	if l := strings.TrimSpace(c.String("list")); l != "" {
		return l
	}
	if q := strings.TrimSpace(c.String("query")); q != "" {
		return inventory.CleanQuery(q)
	}
	return ignorelist.DefaultListName
}

// openStore resolves config, database and store for an ignore subcommand.
// The returned cleanup closes the database when one was opened.
func openStore(c *cli.Context, list string) (ignorelist.Store, func(), error) {
	logger := common.NewLogger(c)
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	var database *db.DB
	cleanup := func() {}
	if c.String("ignore-backend") == common.BackendDB {
		database, err = db.Open(cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		cleanup = func() { database.Close() }
	}

	store, err := common.IgnoreStore(c, cfg, database, list, logger)
	if err != nil {
		cleanup()
		return nil, nil, common.ExitError(err)
	}
	return store, cleanup, nil
}

// StatusAction prints the size of a list and a few of its ids.
func StatusAction(c *cli.Context) error {
	list := listName(c)
	store, cleanup, err := openStore(c, list)
	if err != nil {
		return err
	}
	defer cleanup()

	st, err := ignorelist.GetStatus(c.Context, store, 5)
	if err != nil {
		return err
	}
	if format := c.String("format"); format != "" {
		return common.WriteOutput(os.Stdout, st, format)
	}

	fmt.Printf("Ignore list: %s\n", list)
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Total ignored: %d\n", st.Total)
	if len(st.Sample) > 0 {
		fmt.Printf("Sample ids:    %s\n", strings.Join(st.Sample, ", "))
		if st.Total > len(st.Sample) {
			fmt.Printf("               ... and %d more\n", st.Total-len(st.Sample))
		}
	}
	return nil
}

// AddAction adds ids given as arguments or through --ids.
func AddAction(c *cli.Context) error {
	ids := common.ParseIDs(append(c.Args().Slice(), c.String("ids"))...)
	if len(ids) == 0 {
		return common.ExitError(fmt.Errorf("%w: no ids given", collect.ErrInvalidRequest))
	}
	list := listName(c)
	store, cleanup, err := openStore(c, list)
	if err != nil {
		return err
	}
	defer cleanup()

	ch, err := ignorelist.Add(c.Context, store, ids, c.Bool("dry-run"))
	if err != nil {
		return err
	}
	return printChange(c, list, "add", ch)
}

// RemoveAction removes ids given as arguments or through --ids.
func RemoveAction(c *cli.Context) error {
	ids := common.ParseIDs(append(c.Args().Slice(), c.String("ids"))...)
	if len(ids) == 0 {
		return common.ExitError(fmt.Errorf("%w: no ids given", collect.ErrInvalidRequest))
	}
	list := listName(c)
	store, cleanup, err := openStore(c, list)
	if err != nil {
		return err
	}
	defer cleanup()

	ch, err := ignorelist.Remove(c.Context, store, ids, c.Bool("dry-run"))
	if err != nil {
		return err
	}
	return printChange(c, list, "remove", ch)
}

// ClearAction empties a list.
func ClearAction(c *cli.Context) error {
	list := listName(c)
	store, cleanup, err := openStore(c, list)
	if err != nil {
		return err
	}
	defer cleanup()

	n, err := ignorelist.Clear(c.Context, store, c.Bool("dry-run"))
	if err != nil {
		return err
	}
	if c.Bool("dry-run") {
		fmt.Printf("Would clear %d ids from %s\n", n, list)
		return nil
	}
	fmt.Printf("Cleared %d ids from %s\n", n, list)
	return nil
}

// ImportAction adds the ids mapped in a query_metadata.json file to the list
// of the query that file belongs to.
func ImportAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return common.ExitError(fmt.Errorf("%w: path to a query metadata file is required", collect.ErrInvalidRequest))
	}
	path := c.Args().First()
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, inventory.MetadataFile)
	}

	query, ids, err := ignorelist.ReadMetadata(path)
	if err != nil {
		return err
	}
	list := inventory.CleanQuery(query)
	if c.IsSet("list") {
		list = listName(c)
	}
	common.NewLogger(c).Debug("Read metadata", "path", path, "query", query, "ids", len(ids))
	if len(ids) == 0 {
		fmt.Printf("No video_file_mappings found in %s\n", path)
		return nil
	}

	store, cleanup, err := openStore(c, list)
	if err != nil {
		return err
	}
	defer cleanup()

	ch, err := ignorelist.Add(c.Context, store, ids, c.Bool("dry-run"))
	if err != nil {
		return err
	}
	return printChange(c, list, "import", ch)
}

// ListsAction shows every ignore list with its size.
func ListsAction(c *cli.Context) error {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}

	type row struct {
		Name  string `json:"name" yaml:"name"`
		Count int    `json:"count" yaml:"count"`
	}
	var rows []row

	if c.String("ignore-backend") == common.BackendDB {
		database, err := db.Open(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()
		lists, err := database.IgnoreLists(c.Context)
		if err != nil {
			return err
		}
		for _, l := range lists {
			rows = append(rows, row{Name: l.Name, Count: l.Count})
		}
	} else {
		logger := common.NewLogger(c)
		matches, err := filepath.Glob(filepath.Join(cfg.IgnoreDir, "*_ignore_list.json"))
		if err != nil {
			return err
		}
		sort.Strings(matches)
		for _, m := range matches {
			set, err := ignorelist.NewJSONStore(m, logger).Load(c.Context)
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(filepath.Base(m), "_ignore_list.json")
			rows = append(rows, row{Name: name, Count: set.Len()})
		}
	}

	if format := c.String("format"); format != "" {
		return common.WriteOutput(os.Stdout, rows, format)
	}
	if len(rows) == 0 {
		fmt.Println("No ignore lists found")
		return nil
	}
	fmt.Printf("%-40s %-8s\n", "List", "Ids")
	fmt.Println(strings.Repeat("-", 50))
	for _, r := range rows {
		fmt.Printf("%-40s %-8d\n", r.Name, r.Count)
	}
	fmt.Printf("\nTotal: %d lists\n", len(rows))
	return nil
}

func printChange(c *cli.Context, list, verb string, ch *ignorelist.Change) error {
	if format := c.String("format"); format != "" {
		return common.WriteOutput(os.Stdout, ch, format)
	}

	prefix := ""
	if ch.DryRun {
		prefix = "[dry run] "
	}
	switch verb {
	case "remove":
		fmt.Printf("%sRemoved %d of %d ids from %s (%d not present)\n",
			prefix, len(ch.Applied), ch.Requested, list, len(ch.Skipped))
	default:
		fmt.Printf("%sAdded %d of %d ids to %s (%d already ignored)\n",
			prefix, len(ch.Applied), ch.Requested, list, len(ch.Skipped))
	}
	fmt.Printf("%sList now holds %d ids\n", prefix, ch.Total)
	return nil
}
