// Package transport opens the byte stream behind a live source URI. Each
// scheme yields a [Conn] carrying raw MPEG-TS bytes:
//
//	srt://host:port[?streamid=live/key]          SRT caller
//	srt://:port?mode=listener                    SRT listener, first publisher wins
//	udp://[group]:port[?iface=eth0]              UDP, multicast when group is one
//	tcp://host:port                              TCP client
//	quic://host:port[?fingerprint=<base64>]      QUIC, server-opened unidirectional stream
//	http://, https://                            HTTP GET body
//	file:///path                                 local transport stream
package transport
