/*
Package authsdk provides a client SDK for the lectern authentication service.

# Overview

The service authenticates principals with one-time codes (and optionally a
password), keeps exactly one active session per principal, and issues
EdDSA signed access/refresh token pairs. Every API body can additionally be
wrapped in NaCl box encryption, independent of TLS. The SDK handles all of
this: it performs the key handshake, seals requests, opens responses and
refreshes tokens before they expire.

# SDKClient vs Session

The package is organized around two main types:

  - SDKClient: unauthenticated operations, and the flows that sign in
  - Session: operations that need a bearer token, with automatic refresh

Create an SDKClient and, optionally, switch on payload encryption:

	client := authsdk.NewSDKClient("https://auth.example.com")
	if err := client.EnableEncryption(ctx); err != nil {
		return err
	}

	// Check service health
	health, err := client.GetLiveness(ctx)

# Signing In

Codes are requested first, then exchanged during register or login:

	_, err := client.SendOTP(ctx, "+61400000000", "registration")

	session, result, err := client.Register(ctx, authsdk.RegisterRequest{
		Identifier: "+61400000000",
		Code:       code,
		Name:       "Ada",
		DeviceInfo: "Pixel 8",
	})

	session, result, err = client.Login(ctx, authsdk.LoginRequest{
		Identifier: "+61400000000",
		Password:   "correct horse battery",
	})
	if result.PreviousSessionTerminated {
		// another device was signed out
	}

# Automatic Token Refresh

Session methods call getValidToken internally, which:

 1. Checks if the access token is still valid (with a 30-second buffer)
 2. If expired, rotates the refresh token for a new pair
 3. Stores the new pair in the session

A rotated refresh token is single use. Two processes sharing one refresh
token race, and only one of them wins.

# Encryption

With EnableEncryption, every request to a non-exempt endpoint carries the
client key in the X-Client-Public-Key header, and JSON bodies are sent as

	{"encrypted": true, "payload": {"ciphertext": "...", "nonce": "...", "publicKey": "..."}}

Responses sealed by the server arrive with X-Encrypted: true and are opened
before decoding. A success response that comes back in plaintext is
rejected with ErrUnsealedResponse.

# Error Handling

Service errors are returned as *errx.Error and compare with errors.Is by
code:

	_, err := session.Me(ctx)
	switch {
	case errors.Is(err, errx.ErrSessionTerminated):
		// signed in elsewhere, log in again
	case errors.Is(err, errx.ErrTokenRevoked):
		// logged out
	}

# Thread Safety

Sessions are safe for concurrent use. All Session methods use read/write
locks to protect the tokens, and concurrent callers share one refresh.
*/
package authsdk
