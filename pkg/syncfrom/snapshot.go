package syncfrom

import "github.com/rowsync/rowsync/pkg/wire"

// SnapshotWorker handles the verbs the engine itself has no opinion
// about — schema transfer, filter negotiation, and snapshot
// export/import/hold — each given the verb's raw arguments and the
// reply stream to write to (§4.3.2). Snapshot acquisition and
// schema-transfer logic are out of scope for the engine; a concrete
// implementation wires them to whatever setup the wider sync job needs,
// while these verbs must still round-trip so the stream never
// desynchronizes.
type SnapshotWorker interface {
	HandleSchema(args []interface{}, output *wire.Packer) error
	HandleFilters(args []interface{}, output *wire.Packer) error
	HandleExportSnapshot(args []interface{}, output *wire.Packer) error
	HandleImportSnapshot(args []interface{}, output *wire.Packer) error
	HandleUnholdSnapshot(args []interface{}, output *wire.Packer) error
	HandleWithoutSnapshot(args []interface{}, output *wire.Packer) error
}

// NopSnapshotWorker acknowledges every snapshot/schema/filter verb with
// an empty reply, for engines that don't use the CURRENT features
// themselves but still must speak a protocol version that includes them.
type NopSnapshotWorker struct{}

func (NopSnapshotWorker) HandleSchema(args []interface{}, output *wire.Packer) error {
	return output.PackFrame(int64(wire.Schema))
}

func (NopSnapshotWorker) HandleFilters(args []interface{}, output *wire.Packer) error {
	return output.PackFrame(int64(wire.Filters))
}

func (NopSnapshotWorker) HandleExportSnapshot(args []interface{}, output *wire.Packer) error {
	return output.PackFrame(int64(wire.ExportSnapshot))
}

func (NopSnapshotWorker) HandleImportSnapshot(args []interface{}, output *wire.Packer) error {
	return output.PackFrame(int64(wire.ImportSnapshot))
}

func (NopSnapshotWorker) HandleUnholdSnapshot(args []interface{}, output *wire.Packer) error {
	return output.PackFrame(int64(wire.UnholdSnapshot))
}

func (NopSnapshotWorker) HandleWithoutSnapshot(args []interface{}, output *wire.Packer) error {
	return output.PackFrame(int64(wire.WithoutSnapshot))
}
