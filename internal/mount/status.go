package mount

// Mount status codes (RFC 1813 Appendix I), returned in the first word of
// every MNT reply.
const (
	StatusOK          uint32 = 0
	StatusPerm        uint32 = 1
	StatusNoEnt       uint32 = 2
	StatusIO          uint32 = 5
	StatusAccess      uint32 = 13
	StatusNotDir      uint32 = 20
	StatusInval       uint32 = 22
	StatusNameTooLong uint32 = 63
	StatusNotSupp     uint32 = 10004
	StatusServerFault uint32 = 10006
)

// Procedure numbers (RFC 1813 Appendix I).
const (
	ProcNull    uint32 = 0
	ProcMnt     uint32 = 1
	ProcDump    uint32 = 2
	ProcUmnt    uint32 = 3
	ProcUmntAll uint32 = 4
	ProcExport  uint32 = 5

	ProcMax = ProcExport
)
