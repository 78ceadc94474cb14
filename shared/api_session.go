package main

// #include <stdlib.h>
import "C"
import (
	"sync"
	"unsafe"

	"github.com/gorilla/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/status-im/status-serial-signer-go/pkg/session"
)

var (
	errRPCAlreadyInitialized = errors.New("RPC server already initialized")
	errRPCNotInitialized     = errors.New("RPC server not initialized")

	rpcServerMu     sync.Mutex
	globalRPCServer *rpc.Server
)

// recoverCall turns a panic inside an export into an error reply, so the host
// always gets a string it can free.
func recoverCall(result **C.char) {
	r := recover()
	if r == nil {
		return
	}
	zap.L().Error("signer call panicked", zap.Any("panic", r))
	*result = C.CString(string(session.MarshalError(errors.Errorf("internal error: %v", r))))
}

func errorString(err error) *C.char {
	return C.CString(string(session.MarshalError(err)))
}

//export SignerInitializeRPC
func SignerInitializeRPC() (result *C.char) {
	defer recoverCall(&result)

	rpcServerMu.Lock()
	defer rpcServerMu.Unlock()

	if globalRPCServer != nil {
		return errorString(errRPCAlreadyInitialized)
	}

	rpcServer, err := session.CreateRPCServer()
	if err != nil {
		return errorString(err)
	}
	globalRPCServer = rpcServer

	zap.L().Info("signer RPC initialized")
	return errorString(nil)
}

//export SignerCallRPC
func SignerCallRPC(payload *C.char) (result *C.char) {
	defer recoverCall(&result)

	rpcServerMu.Lock()
	rpcServer := globalRPCServer
	rpcServerMu.Unlock()

	if rpcServer == nil {
		return errorString(errRPCNotInitialized)
	}

	body, err := session.CallRPC(rpcServer, []byte(C.GoString(payload)))
	if err != nil {
		return errorString(err)
	}
	return C.CString(string(body))
}

//export SignerFree
func SignerFree(param unsafe.Pointer) {
	C.free(param)
}
