package main

import (
	"bytes"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/xo/dburl"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/josericardo03/sistemas-manuais-back/api"
	"github.com/josericardo03/sistemas-manuais-back/auth"
	"github.com/josericardo03/sistemas-manuais-back/backend"
	"github.com/josericardo03/sistemas-manuais-back/core"
	"github.com/josericardo03/sistemas-manuais-back/sqldb"
	"github.com/josericardo03/sistemas-manuais-back/sqldb/mysql"
	"github.com/josericardo03/sistemas-manuais-back/sqldb/sqlite3"
	"github.com/josericardo03/sistemas-manuais-back/util"
)

type prefixedResponseWriter struct {
	http.ResponseWriter
	prefix string // without trailing slash
}

// shadows the original WriteHeader func
func (w prefixedResponseWriter) WriteHeader(statusCode int) {
	// prepend prefix to Location header, so redirects work
	if w.prefix != "" {
		if location := w.Header().Get("Location"); len(location) > 0 && location[0] == '/' { // only absolute locations
			w.Header().Set("Location", w.prefix+location)
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

// prefix should be without trailing slash
func handleStrip(prefix string, handler http.Handler) {
	http.Handle(
		prefix+"/", // http mux needs trailing slash
		http.StripPrefix(
			prefix,
			http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {
					w = &prefixedResponseWriter{w, prefix}
					handler.ServeHTTP(w, r)
				},
			),
		),
	)
}

func init() {
	log.SetFlags(0) // no log prefixes, on most systems systemd-journald adds them
}

func main() {

	var dbArg string // is in both FlagSets

	// default FlagSet

	// Your reverse proxy must not strip the prefix. So if you're using nginx, the "proxy_pass" value should not end with a slash."
	var base = flag.String("base", "", "strip off this `prefix` from every HTTP request and prepended it to every link")
	// MySQL: collation should be utf8mb4_unicode_ci
	flag.StringVar(&dbArg, "db", "sqlite3:manuais.sqlite3?_busy_timeout=10000&_journal=WAL&_sync=NORMAL&cache=shared", "sql database url, see github.com/xo/dburl")
	var listenAddr = flag.String("listen", "127.0.0.1:8080", "serve HTTP content at this `ip:port`")

	// init FlagSet

	var initFlags = flag.NewFlagSet("init", flag.ExitOnError)

	initFlags.StringVar(&dbArg, "db", "sqlite3:manuais.sqlite3?_busy_timeout=10000&_journal=WAL&_sync=NORMAL&cache=shared", "sql database url, see github.com/xo/dburl") // copied from above
	var initInsert = initFlags.Bool("insert", false, "creates the given user, prompting for a password")
	var initJoin = initFlags.Bool("join", false, "joins the given user to the given group")
	var groupname = initFlags.String("group", "", "specifies a group `name`")
	var username = initFlags.String("user", "", "specifies a user `name`")

	if len(os.Args) > 1 && os.Args[1] == "init" {
		initFlags.Parse(os.Args[2:])
	} else {
		flag.Parse()
	}

	// config file, all keys are optional

	config, err := util.Ini("manuais.ini")
	if err != nil {
		config = map[string]string{}
		log.Printf("running without config file: %v", err)
	}

	// database

	dbURL, err := dburl.Parse(dbArg)
	if err != nil {
		log.Printf("could not parse database url: %v", err)
		return
	}

	sqlDB, err := sql.Open(dbURL.Driver, dbURL.DSN)
	if err != nil {
		log.Printf("could not open sql database: %v", err)
		return
	}

	if err = sqlDB.Ping(); err != nil {
		log.Printf("could not ping sql database: %v", err)
		return
	}

	log.Printf("using database %s", dbURL.String())

	defer func() {
		log.Println("closing database")
		sqlDB.Close()
	}()

	// base

	*base = strings.Trim(*base, "/")
	if *base != "" {
		*base = "/" + *base
	}

	// assemble stuff

	var sessionStore scs.Store
	switch dbURL.Driver {
	case "mysql":
		sessionStore = mysql.NewSessionStore(sqlDB)
	case "sqlite3":
		sessionStore = sqlite3.NewSessionStore(sqlDB)
	default:
		log.Printf("unknown database backend: %s", dbURL.Driver)
		return
	}

	var sessionManager = scs.New()
	sessionManager.Store = sessionStore
	sessionManager.Cookie.Persist = false // don't store cookie across browser sessions
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.IdleTimeout = 2 * time.Hour
	sessionManager.Lifetime = 12 * time.Hour

	var jwtSecret = config["jwt-secret"]
	if jwtSecret == "" {
		// tokens won't survive a restart without a configured secret
		if jwtSecret, err = util.RandomString32(); err != nil {
			log.Printf("error generating jwt secret: %v", err)
			return
		}
		log.Println("jwt-secret is not configured, using a random secret")
	}

	authDB := &auth.AuthDB{
		UserDB:     sqldb.NewUserDB(sqlDB),
		GroupDB:    sqldb.NewGroupDB(sqlDB),
		JWTSecret:  jwtSecret,
		AdminGroup: config["admin-group"],
	}

	if ldapURL := config["ldap-url"]; ldapURL != "" {
		authDB.Directory = &auth.Directory{
			URL:    ldapURL,
			BaseDN: config["ldap-base-dn"],
			Domain: config["ldap-domain"],
		}
		log.Printf("authenticating against %s", ldapURL)
	}

	manualDB := sqldb.NewManualDB(sqlDB)
	notificationDB := sqldb.NewNotificationDB(sqlDB)

	db := &core.CoreDB{
		DecisionDB:     sqldb.NewDecisionDB(sqlDB),
		RuleDB:         sqldb.NewRuleDB(sqlDB),
		ManualDB:       manualDB,
		NotificationDB: notificationDB,
		CanApprove:     authDB.CanApprove,
		Notify:         core.NewNotifier(notificationDB, manualDB),
	}

	// init

	if initFlags.Parsed() {
		switch {
		case *initInsert:
			if *username != "" {
				insertUser(authDB, *username)
			}
		case *initJoin:
			if *groupname != "" && *username != "" {
				join(authDB, *groupname, *username)
			}
		}
		return
	}

	listen(db, authDB, sessionManager, *listenAddr, *base)
}

func insertUser(authDB *auth.AuthDB, name string) {

	fmt.Printf("password for user %s: ", name)
	pass1, err := terminal.ReadPassword(0)
	fmt.Println()
	if err != nil {
		log.Printf("error reading password: %v", err)
		return
	}

	fmt.Printf("repeat password: ")
	pass2, err := terminal.ReadPassword(0)
	fmt.Println()
	if err != nil {
		log.Printf("error reading password: %v", err)
		return
	}

	if !bytes.Equal(pass1, pass2) {
		log.Printf("passwords don't match")
		return
	}

	if err := authDB.InsertUser(name, name); err != nil {
		log.Printf("error creating user %s: %v", name, err)
		return
	}

	if err := authDB.SetPassword(name, string(pass1)); err != nil {
		log.Printf("error setting password: %v", err)
		return
	}
}

func join(authDB *auth.AuthDB, groupname string, username string) {
	if err := authDB.Join(username, groupname); err != nil {
		log.Printf("error joining: %v", err)
		return
	}
}

func listen(db *core.CoreDB, authDB *auth.AuthDB, sessionManager *scs.SessionManager, addr string, base string) {

	// mux
	//
	// golang mux recovers from panics, so the program won't crash

	handleStrip(base+"/backend", backend.NewBackendRouter(db, authDB, sessionManager, base))
	handleStrip(base+"/static", http.FileServer(http.Dir("static")))
	handleStrip(base, api.NewRouter(db, authDB))

	// listener and listen

	sigintChannel := make(chan os.Signal, 1)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Println(err)
		return
	}

	log.Printf("listening to %s", addr)

	httpSrv := &http.Server{
		Handler:      sessionManager.LoadAndSave(http.DefaultServeMux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil {

			// don't panic, we want a graceful shutdown
			if err != http.ErrServerClosed {
				log.Printf("error listening: %v", err)
			}

			// ensure graceful shutdown
			sigintChannel <- os.Interrupt
		}
	}()

	// graceful shutdown

	signal.Notify(sigintChannel, os.Interrupt, syscall.SIGTERM) // SIGINT (Interrupt) or SIGTERM
	<-sigintChannel

	log.Println("shutting down")
	httpSrv.Close()
}
