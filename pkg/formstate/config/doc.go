/*
Package config loads declarative form definitions from YAML or JSON.

	id: signup
	initialValues:
	  country: US
	fields:
	  - name: email
	    rules:
	      - validator: required
	      - validator: email
	        message: Enter a work email
	  - name: address.zip
	    rules:
	      - validator: pattern
	        params: {pattern: '^\d{5}$'}
	        when: "country == 'US'"
	        trigger: blur

Load with FromFile, FromYAML or FromJSON and pass the result to
formstate.FromSpec. Validator names are resolved when the rules run, so a
definition may reference validators registered after loading.
*/
package config
