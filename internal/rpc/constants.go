package rpc

const (
	HeaderSize = 2
	CmdSize    = 1
	StatusSize = 2

	MaxDataLen = 512

	// MaxRequestSize is the largest frame the device accepts.
	MaxRequestSize = HeaderSize + CmdSize + MaxDataLen
	// MaxResponseSize is the largest frame the device emits.
	MaxResponseSize = HeaderSize + StatusSize + MaxDataLen
)

// StatusOK is the status word reported by the device on success.
const StatusOK uint16 = 0x9000

type CommandID byte

const (
	CmdPing             CommandID = 0xFF
	CmdHashMD5          CommandID = 0xF4
	CmdHashSHA256       CommandID = 0xF5
	CmdInitializeWallet CommandID = 0xA0
	CmdResetWallet      CommandID = 0xA1
	CmdGetWalletStatus  CommandID = 0xA2
	CmdGetAddress       CommandID = 0xA3
	CmdGetPublicKey     CommandID = 0xA4
	CmdSignTransaction  CommandID = 0xA5
)

var commandNames = map[CommandID]string{
	CmdPing:             "ping",
	CmdHashMD5:          "hash-md5",
	CmdHashSHA256:       "hash-sha256",
	CmdInitializeWallet: "initialize-wallet",
	CmdResetWallet:      "reset-wallet",
	CmdGetWalletStatus:  "get-wallet-status",
	CmdGetAddress:       "get-address",
	CmdGetPublicKey:     "get-public-key",
	CmdSignTransaction:  "sign-transaction",
}

func (c CommandID) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}
