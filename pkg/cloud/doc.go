// Package cloud defines the public types shared by the service-client
// builder and the clients it creates: Options, Token and Catalog, the
// error types, the interceptor chain, Future, and the TokenCache backends.
//
// Most callers only need this package to describe options and inspect
// errors; clients are obtained through pkg/builder:
//
//	b := builder.New(cloud.Options{
//	  AuthURL:     "https://keystone.example.com/v3",
//	  Username:    "demo",
//	  Password:    "secret",
//	  DomainName:  "Default",
//	  ProjectName: "demo",
//	  Region:      "RegionOne",
//	})
//
//	svc, err := b.CreateService(ctx, "compute/v2", cloud.Options{})
//	if err != nil {
//	  var cfgErr *cloud.ConfigError
//	  if errors.As(err, &cfgErr) { ... }
//	}
//
// # Errors
//
// Option problems surface as *ConfigError before anything is sent, an
// unknown service name as *ResolutionError, a rejected parameter value as
// *UserInputError, and any response with status >= 400 as
// *BadResponseError whose message is a readable, credential-masked dump of
// the transaction.
//
// # Interceptors
//
// An InterceptorChain set in Options runs before the builder's own
// authentication step on every request, and its response interceptors see
// every response. Logging, header, rate-limit and Prometheus interceptors
// are provided.
package cloud
