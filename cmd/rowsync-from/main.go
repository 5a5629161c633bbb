// Command rowsync-from runs the source side of a table sync: it listens
// for incoming connections from rowsync-to processes and serves
// RANGE/HASH/ROWS verbs against a configured database, per the teacher's
// cmd/ccr_syncer/ccr_syncer.go init()-then-main() wiring shape.
package main

import (
	"flag"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/rowsync/rowsync/pkg/config"
	"github.com/rowsync/rowsync/pkg/logging"
	"github.com/rowsync/rowsync/pkg/netconn"
	"github.com/rowsync/rowsync/pkg/service"
	"github.com/rowsync/rowsync/pkg/sqlclient"
	"github.com/rowsync/rowsync/pkg/syncfrom"
	"github.com/rowsync/rowsync/pkg/version"
	"github.com/rowsync/rowsync/pkg/wire"
	"github.com/rowsync/rowsync/pkg/xmetrics"
)

var (
	port           int
	httpPort       int
	endpointConfig string
	tableConfig    string
)

func init() {
	flag.IntVar(&port, "port", 9190, "sync protocol listen port")
	flag.IntVar(&httpPort, "http_port", 9191, "HTTP health/metrics listen port")
	flag.StringVar(&endpointConfig, "endpoint", "source.conf", "source database connection config file")
	flag.StringVar(&tableConfig, "tables", "tables.json", "table schema config file")
	flag.Parse()

	logging.Init()
}

// emptyRegistry reports no jobs: the source side serves connections, it
// does not drive syncjob.Job state machines.
type emptyRegistry struct{}

func (emptyRegistry) Jobs() []service.JobStatus { return nil }

func main() {
	logrus.Infof("rowsync-from starting, version %s", version.GetVersion())

	endpoint, err := config.ReadEndpoint(endpointConfig)
	if err != nil {
		logrus.Fatalf("read endpoint config failed: %+v", err)
	}
	tables, err := config.LoadTables(tableConfig)
	if err != nil {
		logrus.Fatalf("load table config failed: %+v", err)
	}

	client, err := sqlclient.Open(endpoint.Type, endpoint.Host, endpoint.Port, endpoint.User, endpoint.Password, endpoint.Database, endpoint.Path)
	if err != nil {
		logrus.Fatalf("open source database failed: %+v", err)
	}

	if err := xmetrics.InitGlobal("rowsync-from"); err != nil {
		logrus.Fatalf("init metrics failed: %+v", err)
	}

	httpService := service.NewHttpServer(httpPort, emptyRegistry{})
	go func() {
		if err := httpService.Start(); err != nil {
			logrus.Fatalf("http service start failed: %+v", err)
		}
	}()

	server := netconn.NewServer(port)
	logrus.Infof("rowsync-from listening on :%d", port)
	err = server.Serve(func(conn net.Conn) {
		defer conn.Close()

		log := logrus.WithField("remote_addr", conn.RemoteAddr().String())
		input := wire.NewUnpacker(conn)
		output := wire.NewPacker(conn)
		engine := syncfrom.NewEngine(client, tables, input, output, syncfrom.NopSnapshotWorker{}, log)
		if err := engine.HandleCommands(); err != nil {
			log.Errorf("connection handler exited: %+v", err)
		}
	})
	if err != nil {
		logrus.Fatalf("serve failed: %+v", err)
	}
}
