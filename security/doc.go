// Package security builds client TLS settings for outgoing lookups.
//
//	lookup:
//	  tls:
//	    ca_file: /etc/pmidfetch/proxy-ca.pem
//
// A zero TLSConfig leaves the transport's defaults in place.
package security
