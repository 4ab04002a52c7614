// Package config loads the server configuration from a YAML file.
//
// Config sections:
//   - server.http_port              listener for API, stream and metrics (default 8080)
//   - server.cors.allowed_origins   origins allowed cross-origin (default ["*"])
//   - midi.device                   input selected at startup (optional)
//   - midi.exclude                  name patterns hidden from enumeration
//   - bridge.max_pending            queue cap with drop-oldest; 0 = unbounded
//   - stream.format                 "text" or "json" frames
//   - stream.send_buffer            per-client outbox depth (default 64)
//   - stream.ping_period            keep-alive ping interval (default 54s)
//   - log.level / log.format / log.file  logger settings
//
// Load(path) applies defaults before unmarshalling, then validates. A missing
// file is not an error. Watch(ctx, path, log, fn) reloads on every write.
package config
