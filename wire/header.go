package wire

import "strconv"

// field numbers of the fixed CDemoFileHeader message spec §4.I names, in
// the same opaque-to-this-package numbering as every other message type.
const (
	fnHdrDemoFileStamp           = 1
	fnHdrNetworkProtocol         = 2
	fnHdrServerName              = 3
	fnHdrClientName              = 4
	fnHdrMapName                 = 5
	fnHdrGameDirectory           = 6
	fnHdrFullpacketsVersion      = 7
	fnHdrAllowClientsideEntities = 8
	fnHdrAllowClientsideParticles = 9
	fnHdrDemoVersionName         = 10
	fnHdrDemoVersionGUID         = 11
	fnHdrBuildNum                = 12
	fnHdrGame                    = 13
)

// FileHeader is the fixed key/value block spec §4.I says every demo
// carries immediately after its magic stamp.
type FileHeader struct {
	DemoFileStamp            string
	NetworkProtocol          int32
	ServerName               string
	ClientName               string
	MapName                  string
	GameDirectory            string
	FullpacketsVersion       int32
	AllowClientsideEntities  bool
	AllowClientsideParticles bool
	DemoVersionName          string
	DemoVersionGUID          string
	BuildNum                 int32
	Game                     string
}

// ParseFileHeader decodes a CDemoFileHeader message body.
func ParseFileHeader(body []byte) (FileHeader, error) {
	fs, err := parseFields(body)
	if err != nil {
		return FileHeader{}, err
	}
	var h FileHeader
	for _, f := range fs {
		switch f.Num {
		case fnHdrDemoFileStamp:
			h.DemoFileStamp = string(f.Buf)
		case fnHdrNetworkProtocol:
			h.NetworkProtocol = int32(f.U64)
		case fnHdrServerName:
			h.ServerName = string(f.Buf)
		case fnHdrClientName:
			h.ClientName = string(f.Buf)
		case fnHdrMapName:
			h.MapName = string(f.Buf)
		case fnHdrGameDirectory:
			h.GameDirectory = string(f.Buf)
		case fnHdrFullpacketsVersion:
			h.FullpacketsVersion = int32(f.U64)
		case fnHdrAllowClientsideEntities:
			h.AllowClientsideEntities = f.U64 != 0
		case fnHdrAllowClientsideParticles:
			h.AllowClientsideParticles = f.U64 != 0
		case fnHdrDemoVersionName:
			h.DemoVersionName = string(f.Buf)
		case fnHdrDemoVersionGUID:
			h.DemoVersionGUID = string(f.Buf)
		case fnHdrBuildNum:
			h.BuildNum = int32(f.U64)
		case fnHdrGame:
			h.Game = string(f.Buf)
		}
	}
	return h, nil
}

// AsMap renders h as the string-keyed map the query layer's parse_header
// operation returns (spec §4.I): every field stringified, matching the
// fixed key list.
func (h FileHeader) AsMap() map[string]string {
	return map[string]string{
		"demo_file_stamp":            h.DemoFileStamp,
		"network_protocol":           strconv.Itoa(int(h.NetworkProtocol)),
		"server_name":                h.ServerName,
		"client_name":                h.ClientName,
		"map_name":                   h.MapName,
		"game_directory":             h.GameDirectory,
		"fullpackets_version":        strconv.Itoa(int(h.FullpacketsVersion)),
		"allow_clientside_entities":  strconv.FormatBool(h.AllowClientsideEntities),
		"allow_clientside_particles": strconv.FormatBool(h.AllowClientsideParticles),
		"demo_version_name":          h.DemoVersionName,
		"demo_version_guid":          h.DemoVersionGUID,
		"build_num":                  strconv.Itoa(int(h.BuildNum)),
		"game":                       h.Game,
	}
}
