// Command rowsync-to runs the destination side of a table sync: for
// every configured table it dials the source, drives a syncjob.Job to
// convergence, and persists its checkpoint, per the teacher's
// cmd/ccr_syncer/ccr_syncer.go init()-then-main() wiring shape (flags
// parsed in init, dependencies constructed and started in main, an
// http service running alongside the sync workers).
package main

import (
	"flag"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rowsync/rowsync/pkg/config"
	"github.com/rowsync/rowsync/pkg/dbcap"
	"github.com/rowsync/rowsync/pkg/jobstore"
	"github.com/rowsync/rowsync/pkg/logging"
	"github.com/rowsync/rowsync/pkg/netconn"
	"github.com/rowsync/rowsync/pkg/schema"
	"github.com/rowsync/rowsync/pkg/service"
	"github.com/rowsync/rowsync/pkg/sqlclient"
	"github.com/rowsync/rowsync/pkg/syncjob"
	"github.com/rowsync/rowsync/pkg/version"
	"github.com/rowsync/rowsync/pkg/wire"
	"github.com/rowsync/rowsync/pkg/xmetrics"
)

var (
	sourceHost string
	sourcePort int

	httpPort int

	destEndpointConfig string
	tableConfig        string
	jobName            string

	jobstoreEndpointConfig string

	// concurrency caps how many table jobs run at once; 0 means
	// unbounded, matching the teacher leaving its own job count
	// unbounded and only pooling *connections* (pkg/ccr/base/pool.go).
	concurrency int
)

func init() {
	flag.StringVar(&sourceHost, "source_host", "127.0.0.1", "source rowsync-from host")
	flag.IntVar(&sourcePort, "source_port", 9190, "source rowsync-from port")

	flag.IntVar(&httpPort, "http_port", 9291, "HTTP health/metrics listen port")

	flag.StringVar(&destEndpointConfig, "endpoint", "dest.conf", "destination database connection config file")
	flag.StringVar(&tableConfig, "tables", "tables.json", "table schema config file")
	flag.StringVar(&jobName, "job_name", "rowsync", "job name, used to namespace checkpoint storage")

	flag.StringVar(&jobstoreEndpointConfig, "jobstore", "jobstore.conf", "checkpoint store connection config file")

	flag.IntVar(&concurrency, "concurrency", 0, "max number of tables synced at once (0 = unbounded)")

	flag.Parse()

	logging.Init()
}

// jobRegistry is the thread-safe Registry the HTTP status endpoint
// reads from while jobs run concurrently in their own goroutines.
type jobRegistry struct {
	mu   sync.Mutex
	jobs map[string]*syncjob.Job
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[string]*syncjob.Job)}
}

func (r *jobRegistry) add(job *syncjob.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.TableName()] = job
}

func (r *jobRegistry) Jobs() []service.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]service.JobStatus, 0, len(r.jobs))
	for _, job := range r.jobs {
		statuses = append(statuses, service.JobStatus{
			Table:         job.TableName(),
			State:         job.State(),
			RowsConverged: job.RowsConverged(),
		})
	}
	return statuses
}

func openJobStore(endpoint config.Endpoint, jobName string) (syncjob.Checkpointer, error) {
	switch endpoint.Type {
	case "mysql":
		return jobstore.NewMySQLStore(endpoint.Host, endpoint.Port, endpoint.User, endpoint.Password, endpoint.Database, jobName)
	case "postgres":
		return jobstore.NewPostgreSQLStore(endpoint.Host, endpoint.Port, endpoint.User, endpoint.Password, endpoint.Database, jobName)
	case "sqlite3":
		return jobstore.NewSQLiteStore(endpoint.Path, jobName)
	default:
		return syncjob.NopCheckpointer{}, nil
	}
}

func syncTable(client dbcap.DatabaseClient, table *schema.Table, checkpoint syncjob.Checkpointer, registry *jobRegistry) error {
	conn, err := netconn.Dial(sourceHost, sourcePort)
	if err != nil {
		return err
	}
	defer conn.Close()

	log := logrus.WithField("table", table.Name)
	logging.SetGoroutineTable(table.Name)
	defer logging.ClearGoroutineTable()

	input := wire.NewUnpacker(conn)
	output := wire.NewPacker(conn)
	job := syncjob.NewJob(client, table, input, output, checkpoint, log)
	registry.add(job)

	return job.Run()
}

func main() {
	logrus.Infof("rowsync-to starting, version %s", version.GetVersion())

	destEndpoint, err := config.ReadEndpoint(destEndpointConfig)
	if err != nil {
		logrus.Fatalf("read destination endpoint config failed: %+v", err)
	}
	jobstoreEndpoint, err := config.ReadEndpoint(jobstoreEndpointConfig)
	if err != nil {
		logrus.Fatalf("read jobstore endpoint config failed: %+v", err)
	}
	tables, err := config.LoadTables(tableConfig)
	if err != nil {
		logrus.Fatalf("load table config failed: %+v", err)
	}

	client, err := sqlclient.Open(destEndpoint.Type, destEndpoint.Host, destEndpoint.Port, destEndpoint.User, destEndpoint.Password, destEndpoint.Database, destEndpoint.Path)
	if err != nil {
		logrus.Fatalf("open destination database failed: %+v", err)
	}

	checkpoint, err := openJobStore(jobstoreEndpoint, jobName)
	if err != nil {
		logrus.Fatalf("open jobstore failed: %+v", err)
	}

	if err := xmetrics.InitGlobal("rowsync-to"); err != nil {
		logrus.Fatalf("init metrics failed: %+v", err)
	}

	registry := newJobRegistry()
	httpService := service.NewHttpServer(httpPort, registry)
	go func() {
		if err := httpService.Start(); err != nil {
			logrus.Fatalf("http service start failed: %+v", err)
		}
	}()

	var sem chan struct{}
	if concurrency > 0 {
		sem = make(chan struct{}, concurrency)
	}

	var wg sync.WaitGroup
	for _, table := range tables {
		table := table
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			if err := syncTable(client, table, checkpoint, registry); err != nil {
				logrus.WithField("table", table.Name).Errorf("sync failed: %+v", err)
			}
		}()
	}
	wg.Wait()
}
