// Package supervisor owns the long-lived store connection. It keeps retrying
// the initial connect at a fixed interval and logs every connectivity change
// the connection reports afterwards.
package supervisor
