package session

import (
	"github.com/gorilla/rpc"
	gorillajson "github.com/gorilla/rpc/json"
)

var globalSignerService SignerService

func CreateRPCServer() (*rpc.Server, error) {
	return NewRPCServer(&globalSignerService)
}

func NewRPCServer(service *SignerService) (*rpc.Server, error) {
	rpcServer := rpc.NewServer()
	rpcServer.RegisterCodec(gorillajson.NewCodec(), "application/json")
	err := rpcServer.RegisterTCPService(service, "signer")
	return rpcServer, err
}
