package nfs3

// null implements NFSPROC3_NULL: a no-op used by clients as a liveness
// check. It carries no arguments and no reply body.
func (s *Server) null() ([]byte, error) {
	return nil, nil
}
