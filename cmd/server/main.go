package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/NicolasHaas/gobbs/pkg/config"
	"github.com/NicolasHaas/gobbs/pkg/datastore"
	"github.com/NicolasHaas/gobbs/pkg/logging"
	"github.com/NicolasHaas/gobbs/pkg/model"
	"github.com/NicolasHaas/gobbs/pkg/server"
	"github.com/NicolasHaas/gobbs/pkg/version"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (settings also read from GOBBS_* env vars)")

	listenAddr := flag.String("listen", "", "TCP bind address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database file path (overrides config)")
	metricsAddr := flag.String("metrics", "", "HTTP bind address for Prometheus /metrics (overrides config)")
	usersFile := flag.String("users-file", "", "YAML file of accounts to seed on startup")

	addUser := flag.String("adduser", "", "Create an admin account as name:password and exit")
	addMember := flag.String("addmember", "", "Create a regular account as name:password and exit")
	delUser := flag.String("deluser", "", "Delete the named account and exit")
	promote := flag.String("promote", "", "Grant the named account the admin role and exit")
	demote := flag.String("demote", "", "Revoke the named account's admin role and exit")
	listUsers := flag.Bool("listusers", false, "List all accounts and exit")
	backupPath := flag.String("backup", "", "Write a consistent database snapshot to this path and exit")
	exportUsers := flag.Bool("export-users", false, "Export all accounts as YAML and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")

	logLevel := flag.String("log-level", "", "Log level: "+logging.LevelNames()+" (overrides config)")
	logFormat := flag.String("log-format", "", "Log format: text or json (overrides config)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}
	if *dbPath != "" {
		cfg.DB.Path = *dbPath
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}

	if err := logging.Setup(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	st, err := datastore.NewProviderFactory(cfg.DB.Path)
	if err != nil {
		slog.Error("open database", "err", err)
		os.Exit(1)
	}

	// Handle one-shot account and maintenance commands (run and exit)
	if done := runOneShot(st, oneShotFlags{
		addUser:     *addUser,
		addMember:   *addMember,
		delUser:     *delUser,
		promote:     *promote,
		demote:      *demote,
		listUsers:   *listUsers,
		backupPath:  *backupPath,
		exportUsers: *exportUsers,
	}); done {
		_ = st.Close()
		return
	}

	srvCfg := server.Config{
		ListenAddr:  cfg.Server.ListenAddr,
		MetricsAddr: cfg.Server.MetricsAddr,
		IdleTimeout: time.Duration(cfg.Server.IdleTimeout) * time.Second,
		DocsDir:     cfg.Data.DocsDir,
		UploadsDir:  cfg.Data.UploadsDir,
		ChatHistory: cfg.Chat.HistorySize,
		UsersFile:   *usersFile,
	}

	srv := server.New(srvCfg, server.Dependencies{Store: st})
	if err := srv.Run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

type oneShotFlags struct {
	addUser     string
	addMember   string
	delUser     string
	promote     string
	demote      string
	listUsers   bool
	backupPath  string
	exportUsers bool
}

// runOneShot executes at most one maintenance command and reports whether
// the process should exit instead of starting the server.
func runOneShot(st *datastore.ProviderFactory, f oneShotFlags) bool {
	fail := func(op string, err error) bool {
		slog.Error(op, "err", err)
		os.Exit(1)
		return true
	}

	switch {
	case f.addUser != "":
		name, pass, ok := strings.Cut(f.addUser, ":")
		if !ok {
			return fail("adduser", fmt.Errorf("expected name:password"))
		}
		if err := server.AddUser(st, name, pass, model.RoleAdmin); err != nil {
			return fail("adduser", err)
		}
		fmt.Printf("created admin account %s\n", name)

	case f.addMember != "":
		name, pass, ok := strings.Cut(f.addMember, ":")
		if !ok {
			return fail("addmember", fmt.Errorf("expected name:password"))
		}
		if err := server.AddUser(st, name, pass, model.RoleUser); err != nil {
			return fail("addmember", err)
		}
		fmt.Printf("created account %s\n", name)

	case f.delUser != "":
		if err := server.DeleteUser(st, f.delUser); err != nil {
			return fail("deluser", err)
		}
		fmt.Printf("deleted account %s\n", f.delUser)

	case f.promote != "":
		if err := server.SetUserRole(st, f.promote, model.RoleAdmin); err != nil {
			return fail("promote", err)
		}
		fmt.Printf("%s is now admin\n", f.promote)

	case f.demote != "":
		if err := server.SetUserRole(st, f.demote, model.RoleUser); err != nil {
			return fail("demote", err)
		}
		fmt.Printf("%s is now user\n", f.demote)

	case f.listUsers:
		users, err := st.NonTx().ListUsers()
		if err != nil {
			return fail("listusers", err)
		}
		for _, u := range users {
			fmt.Printf("%s (%s)\n", u.Username, u.Role)
		}

	case f.backupPath != "":
		if err := st.Backup(f.backupPath); err != nil {
			return fail("backup", err)
		}
		fmt.Printf("backup written to %s\n", f.backupPath)

	case f.exportUsers:
		data, err := server.ExportUsersYAML(st)
		if err != nil {
			return fail("export users", err)
		}
		fmt.Print(string(data))

	default:
		return false
	}
	return true
}
