package rpc

type registryParams struct {
	Collection string `json:"collection"`
}

type verificationResult struct {
	Collection string `json:"collection"`
	Verified   bool   `json:"verified"`
}

func (s *Server) registryCollection(req *RPCRequest) ([20]byte, error) {
	var params registryParams
	if err := singleObjectParams(req, &params); err != nil {
		return [20]byte{}, err
	}
	return parseAddress("collection", params.Collection)
}

func (s *Server) handleRegistryAdd(req *RPCRequest) (interface{}, error) {
	collection, err := s.registryCollection(req)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Add(collection); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) handleRegistryVerify(req *RPCRequest) (interface{}, error) {
	collection, err := s.registryCollection(req)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Verify(collection); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) handleRegistryRemove(req *RPCRequest) (interface{}, error) {
	collection, err := s.registryCollection(req)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Remove(collection); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) handleRegistryIsVerified(req *RPCRequest) (interface{}, error) {
	collection, err := s.registryCollection(req)
	if err != nil {
		return nil, err
	}
	verified, err := s.registry.IsVerified(collection)
	if err != nil {
		return nil, err
	}
	return verificationResult{Collection: encodeAddress(collection), Verified: verified}, nil
}

func (s *Server) handleRegistryExisting(req *RPCRequest) (interface{}, error) {
	collection, err := s.registryCollection(req)
	if err != nil {
		return nil, err
	}
	exists, err := s.registry.ExistingContract(collection)
	if err != nil {
		return nil, err
	}
	return exists, nil
}

func (s *Server) handleRegistryList(req *RPCRequest) (interface{}, error) {
	collections, err := s.registry.ListRegistered()
	if err != nil {
		return nil, err
	}
	return encodeAddressList(collections), nil
}

func (s *Server) handleRegistryListVerified(req *RPCRequest) (interface{}, error) {
	collections, err := s.registry.ListVerified()
	if err != nil {
		return nil, err
	}
	return encodeAddressList(collections), nil
}

func encodeAddressList(addrs [][20]byte) []string {
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, encodeAddress(addr))
	}
	return out
}
